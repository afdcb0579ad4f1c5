package enums

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Status returns the terminal submission status a decision transitions to.
func (d Decision) Status() SubmissionStatus {
	if d == DecisionAccept {
		return SubmissionStatusAccepted
	}
	return SubmissionStatusRejected
}
