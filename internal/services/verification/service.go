package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrysorokin/mediapoints/backend/internal/services/accounts"
	pgrepo "github.com/dmitrysorokin/mediapoints/backend/internal/repo/postgres"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrCodeInvalid = errors.New("code is invalid or expired")
)

// TooManyRequestsError reports a throttled issuance together with the wait.
type TooManyRequestsError struct {
	RetryAfterSec int64
}

func (e *TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many code requests, retry after %ds", e.RetryAfterSec)
}

// Ledger is the durable one-time-code store. Issue must invalidate every
// still-valid code of the identity before inserting; Redeem must consume the
// code and resolve its account as one atomic unit.
type Ledger interface {
	Issue(ctx context.Context, code, identity, handle string, expiresAt time.Time) (pgrepo.CodeRecord, error)
	Redeem(ctx context.Context, code string) (pgrepo.AccountRecord, error)
}

type IssueLimiter interface {
	AllowIssue(ctx context.Context, identity string) (int64, bool, error)
}

type Service struct {
	ledger  Ledger
	limiter IssueLimiter
	ttl     time.Duration
	now     func() time.Time
}

type IssuedCode struct {
	Code      string
	ExpiresAt time.Time
}

func NewService(ledger Ledger, limiter IssueLimiter, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &Service{
		ledger:  ledger,
		limiter: limiter,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue generates and persists a fresh login code for the identity. Any
// previously issued unconsumed code stops being redeemable.
func (s *Service) Issue(ctx context.Context, identity, handle string) (IssuedCode, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return IssuedCode{}, ErrValidation
	}
	if s.ledger == nil {
		return IssuedCode{}, fmt.Errorf("verification ledger is not configured")
	}

	if s.limiter != nil {
		retryAfter, allowed, err := s.limiter.AllowIssue(ctx, identity)
		if err != nil {
			return IssuedCode{}, fmt.Errorf("check issue rate: %w", err)
		}
		if !allowed {
			return IssuedCode{}, &TooManyRequestsError{RetryAfterSec: retryAfter}
		}
	}

	code, err := GenerateCode()
	if err != nil {
		return IssuedCode{}, err
	}

	record, err := s.ledger.Issue(ctx, code, identity, strings.TrimSpace(handle), s.now().Add(s.ttl))
	if err != nil {
		return IssuedCode{}, fmt.Errorf("issue verification code: %w", err)
	}

	return IssuedCode{Code: record.Code, ExpiresAt: record.ExpiresAt}, nil
}

// Redeem exchanges a one-time code for the bound account, creating the
// account on first redemption.
func (s *Service) Redeem(ctx context.Context, code string) (accounts.Account, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return accounts.Account{}, ErrValidation
	}
	if s.ledger == nil {
		return accounts.Account{}, fmt.Errorf("verification ledger is not configured")
	}

	record, err := s.ledger.Redeem(ctx, code)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCodeInvalid) {
			return accounts.Account{}, ErrCodeInvalid
		}
		return accounts.Account{}, fmt.Errorf("redeem verification code: %w", err)
	}

	return accounts.Account{
		ID:        record.ID,
		Identity:  record.Identity,
		Handle:    record.Handle,
		Points:    record.Points,
		CreatedAt: record.CreatedAt,
	}, nil
}
