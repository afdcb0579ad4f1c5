package botapp

import (
	"strings"
	"testing"

	"github.com/dmitrysorokin/mediapoints/backend/internal/domain/enums"
	"github.com/dmitrysorokin/mediapoints/backend/internal/services/accounts"
	subsvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/submissions"
)

func TestVerdictTextsAccept(t *testing.T) {
	outcome := subsvc.Outcome{
		Decision: enums.DecisionAccept,
		Account:  accounts.Account{Handle: "alice", Points: 6},
	}

	admin := verdictAdminText(outcome)
	if !strings.Contains(admin, "@alice") || !strings.Contains(admin, "6") {
		t.Fatalf("admin text should name the submitter and new balance: %q", admin)
	}

	submitter := verdictSubmitterText(outcome)
	if !strings.Contains(submitter, "6") {
		t.Fatalf("submitter text should show the new balance: %q", submitter)
	}
}

func TestVerdictTextsReject(t *testing.T) {
	outcome := subsvc.Outcome{
		Decision: enums.DecisionReject,
		Account:  accounts.Account{Handle: "alice", Points: 6},
	}

	if strings.Contains(verdictSubmitterText(outcome), "Баланс") {
		t.Fatalf("reject text should not mention a credited balance")
	}
	if verdictShortText(outcome) != "Отклонено" {
		t.Fatalf("unexpected short text: %q", verdictShortText(outcome))
	}
}

func TestDisplayHandleFallsBack(t *testing.T) {
	if got := displayHandle("  "); got == "@" || got == "" {
		t.Fatalf("blank handle needs a fallback, got %q", got)
	}
	if got := displayHandle("bob"); got != "@bob" {
		t.Fatalf("unexpected handle: %q", got)
	}
}
