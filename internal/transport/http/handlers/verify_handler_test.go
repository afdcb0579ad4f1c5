package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pgrepo "github.com/dmitrysorokin/mediapoints/backend/internal/repo/postgres"
	verifsvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/verification"
)

type singleCodeLedger struct {
	code     string
	consumed bool
	account  pgrepo.AccountRecord
}

func (l *singleCodeLedger) Issue(_ context.Context, code, identity, handle string, expiresAt time.Time) (pgrepo.CodeRecord, error) {
	l.code = code
	l.consumed = false
	return pgrepo.CodeRecord{Code: code, Identity: identity, Handle: handle, ExpiresAt: expiresAt}, nil
}

func (l *singleCodeLedger) Redeem(_ context.Context, code string) (pgrepo.AccountRecord, error) {
	if l.consumed || code != l.code {
		return pgrepo.AccountRecord{}, pgrepo.ErrCodeInvalid
	}
	l.consumed = true
	return l.account, nil
}

func TestVerifyHandlerReturnsAccountEnvelope(t *testing.T) {
	ledger := &singleCodeLedger{
		code:    "123456",
		account: pgrepo.AccountRecord{ID: 7, Identity: "42", Handle: "alice", Points: 9},
	}
	handler := NewVerifyHandler(verifsvc.NewService(ledger, nil, 10*time.Minute))

	req := httptest.NewRequest(http.MethodPost, "/api/verify-code", strings.NewReader(`{"code":"123456"}`))
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var body struct {
		Success bool `json:"success"`
		User    struct {
			ID       int64  `json:"id"`
			Identity string `json:"telegram_chat_id"`
			Handle   string `json:"telegram_username"`
			Points   int64  `json:"points"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success || body.User.ID != 7 || body.User.Identity != "42" || body.User.Points != 9 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestVerifyHandlerRejectsInvalidCode(t *testing.T) {
	handler := NewVerifyHandler(verifsvc.NewService(&singleCodeLedger{code: "123456"}, nil, 10*time.Minute))

	req := httptest.NewRequest(http.MethodPost, "/api/verify-code", strings.NewReader(`{"code":"000000"}`))
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong code, got %d", rec.Code)
	}

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Success || body.Message == "" {
		t.Fatalf("failure envelope should carry success=false and a message: %+v", body)
	}
}

func TestVerifyHandlerRejectsBlankCode(t *testing.T) {
	handler := NewVerifyHandler(verifsvc.NewService(&singleCodeLedger{}, nil, 10*time.Minute))

	for _, payload := range []string{`{}`, `{"code":"  "}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/verify-code", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		handler.Handle(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for payload %q, got %d", payload, rec.Code)
		}
	}
}

func TestVerifyHandlerCodeRedeemsOnce(t *testing.T) {
	ledger := &singleCodeLedger{code: "123456", account: pgrepo.AccountRecord{ID: 1, Identity: "42"}}
	handler := NewVerifyHandler(verifsvc.NewService(ledger, nil, 10*time.Minute))

	for attempt, want := range []int{http.StatusOK, http.StatusBadRequest} {
		req := httptest.NewRequest(http.MethodPost, "/api/verify-code", strings.NewReader(`{"code":"123456"}`))
		rec := httptest.NewRecorder()
		handler.Handle(rec, req)

		if rec.Code != want {
			t.Fatalf("attempt %d: expected %d, got %d", attempt+1, want, rec.Code)
		}
	}
}
