package submissions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrysorokin/mediapoints/backend/internal/domain/enums"
)

const (
	acceptTokenPrefix = "accept_"
	rejectTokenPrefix = "reject_"
)

// FormatDecisionToken builds the opaque callback token attached to a
// moderation prompt button.
func FormatDecisionToken(decision enums.Decision, submissionID int64) string {
	prefix := rejectTokenPrefix
	if decision == enums.DecisionAccept {
		prefix = acceptTokenPrefix
	}
	return prefix + strconv.FormatInt(submissionID, 10)
}

// ParseDecisionToken is the single place decision tokens are interpreted;
// both the chat callback path and any other transport feed its result into
// Decide.
func ParseDecisionToken(token string) (enums.Decision, int64, error) {
	token = strings.TrimSpace(token)

	var (
		decision enums.Decision
		rest     string
	)
	switch {
	case strings.HasPrefix(token, acceptTokenPrefix):
		decision = enums.DecisionAccept
		rest = token[len(acceptTokenPrefix):]
	case strings.HasPrefix(token, rejectTokenPrefix):
		decision = enums.DecisionReject
		rest = token[len(rejectTokenPrefix):]
	default:
		return "", 0, fmt.Errorf("unknown decision token %q", token)
	}

	submissionID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || submissionID <= 0 {
		return "", 0, fmt.Errorf("invalid submission id in decision token %q", token)
	}

	return decision, submissionID, nil
}
