package enums

type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusAccepted SubmissionStatus = "accepted"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionStatusAccepted || s == SubmissionStatusRejected
}
