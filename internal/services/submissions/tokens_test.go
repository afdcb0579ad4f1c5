package submissions

import (
	"testing"

	"github.com/dmitrysorokin/mediapoints/backend/internal/domain/enums"
)

func TestDecisionTokenRoundTrip(t *testing.T) {
	for _, decision := range []enums.Decision{enums.DecisionAccept, enums.DecisionReject} {
		token := FormatDecisionToken(decision, 1234)
		parsed, id, err := ParseDecisionToken(token)
		if err != nil {
			t.Fatalf("parse %q: %v", token, err)
		}
		if parsed != decision || id != 1234 {
			t.Fatalf("round trip mismatch: %q -> %s %d", token, parsed, id)
		}
	}
}

func TestParseDecisionTokenRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"approve_1",
		"accept_",
		"accept_abc",
		"accept_-5",
		"accept_0",
		"reject",
		"accept_1x",
		"_accept_1",
	}
	for _, token := range cases {
		if _, _, err := ParseDecisionToken(token); err == nil {
			t.Fatalf("expected error for token %q", token)
		}
	}
}

func TestParseDecisionTokenTrimsWhitespace(t *testing.T) {
	decision, id, err := ParseDecisionToken("  reject_42 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if decision != enums.DecisionReject || id != 42 {
		t.Fatalf("unexpected parse result: %s %d", decision, id)
	}
}
