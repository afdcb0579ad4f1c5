package submissions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/dmitrysorokin/mediapoints/backend/internal/domain/enums"
	pgrepo "github.com/dmitrysorokin/mediapoints/backend/internal/repo/postgres"
	"github.com/dmitrysorokin/mediapoints/backend/internal/services/accounts"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidKind        = errors.New("unsupported media kind")
	ErrPayloadTooLarge    = errors.New("payload exceeds upload limit")
	ErrAccountNotFound    = errors.New("account not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadyDecided     = errors.New("submission already decided")
	ErrDelivery           = errors.New("moderation prompt delivery failed")
)

const defaultMaxUploadBytes = 50 << 20

type Store interface {
	Create(ctx context.Context, accountID int64, kind enums.MediaKind) (pgrepo.SubmissionRecord, error)
	Decide(ctx context.Context, submissionID int64, decision enums.Decision, moderatorID int64) (pgrepo.DecisionRecord, error)
	CountPending(ctx context.Context) (int, error)
}

type Accounts interface {
	GetByID(ctx context.Context, accountID int64) (accounts.Account, error)
}

// Staging is transient payload storage between upload and moderation
// hand-off. Every Enqueue path, success or failure, ends with Delete.
type Staging interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ModerationPrompt carries everything the chat channel needs to render a
// reviewable message with accept and reject buttons.
type ModerationPrompt struct {
	SubmissionID int64
	Kind         enums.MediaKind
	FileName     string
	ContentType  string
	Media        io.Reader
	Handle       string
	Points       int64
	AcceptToken  string
	RejectToken  string
}

type Notifier interface {
	SendModerationPrompt(ctx context.Context, prompt ModerationPrompt) error
}

type Service struct {
	store          Store
	accounts       Accounts
	staging        Staging
	notifier       Notifier
	log            *zap.Logger
	maxUploadBytes int64
}

type Submission struct {
	ID          int64
	AccountID   int64
	Kind        enums.MediaKind
	Status      enums.SubmissionStatus
	CreatedAt   time.Time
	DecidedAt   *time.Time
	ModeratorID *int64
}

// Receipt confirms a queued submission together with the decision tokens the
// moderation message was sent with.
type Receipt struct {
	Submission  Submission
	AcceptToken string
	RejectToken string
}

// Outcome reports a settled decision: the terminal submission plus the
// account as it stands after any credit.
type Outcome struct {
	Decision   enums.Decision
	Submission Submission
	Account    accounts.Account
}

type EnqueueParams struct {
	AccountID   int64
	Kind        enums.MediaKind
	FileName    string
	ContentType string
	Body        io.Reader
	Size        int64
}

func NewService(store Store, accountsSvc Accounts, staging Staging, notifier Notifier, log *zap.Logger, maxUploadBytes int64) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}

	return &Service{
		store:          store,
		accounts:       accountsSvc,
		staging:        staging,
		notifier:       notifier,
		log:            log,
		maxUploadBytes: maxUploadBytes,
	}
}

// Enqueue validates and stages an upload, records a pending submission and
// forwards it to the moderation channel. The staged copy is removed before
// returning no matter how the call ends; a delivery failure after one retry
// surfaces as ErrDelivery while the pending submission stays queued.
func (s *Service) Enqueue(ctx context.Context, p EnqueueParams) (Receipt, error) {
	if p.AccountID <= 0 || p.Body == nil || p.Size <= 0 {
		return Receipt{}, ErrValidation
	}
	if p.Size > s.maxUploadBytes {
		return Receipt{}, ErrPayloadTooLarge
	}
	if p.Kind != enums.MediaKindPhoto && p.Kind != enums.MediaKindVideo {
		return Receipt{}, ErrInvalidKind
	}
	if s.store == nil || s.accounts == nil || s.staging == nil || s.notifier == nil {
		return Receipt{}, fmt.Errorf("submission service is not fully configured")
	}

	account, err := s.accounts.GetByID(ctx, p.AccountID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return Receipt{}, ErrAccountNotFound
		}
		return Receipt{}, fmt.Errorf("resolve submitting account: %w", err)
	}

	if err := s.staging.EnsureBucket(ctx); err != nil {
		return Receipt{}, err
	}

	key := buildStagedKey(p.FileName)
	if err := s.staging.Put(ctx, key, p.Body, p.Size, p.ContentType); err != nil {
		return Receipt{}, err
	}
	defer func() {
		if err := s.staging.Delete(context.WithoutCancel(ctx), key); err != nil {
			s.log.Warn("failed to delete staged payload", zap.String("key", key), zap.Error(err))
		}
	}()

	record, err := s.store.Create(ctx, account.ID, p.Kind)
	if err != nil {
		return Receipt{}, fmt.Errorf("create submission: %w", err)
	}

	prompt := ModerationPrompt{
		SubmissionID: record.ID,
		Kind:         p.Kind,
		FileName:     p.FileName,
		ContentType:  p.ContentType,
		Handle:       account.Handle,
		Points:       account.Points,
		AcceptToken:  FormatDecisionToken(enums.DecisionAccept, record.ID),
		RejectToken:  FormatDecisionToken(enums.DecisionReject, record.ID),
	}

	if err := s.deliverPrompt(ctx, key, prompt); err != nil {
		s.log.Warn("moderation prompt delivery failed",
			zap.Int64("submission_id", record.ID), zap.Error(err))
		return Receipt{}, fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	return Receipt{
		Submission:  fromSubmissionRecord(record),
		AcceptToken: prompt.AcceptToken,
		RejectToken: prompt.RejectToken,
	}, nil
}

// deliverPrompt sends the staged payload to the moderation channel, retrying
// once. Each attempt streams a fresh copy since a reader cannot be rewound
// after a partial send.
func (s *Service) deliverPrompt(ctx context.Context, key string, prompt ModerationPrompt) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		body, err := s.staging.Get(ctx, key)
		if err != nil {
			return err
		}

		prompt.Media = body
		err = s.notifier.SendModerationPrompt(ctx, prompt)
		body.Close()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// Decide applies a moderator verdict exactly once. A repeated verdict for the
// same submission returns ErrAlreadyDecided and changes nothing.
func (s *Service) Decide(ctx context.Context, decision enums.Decision, submissionID, moderatorID int64) (Outcome, error) {
	if submissionID <= 0 {
		return Outcome{}, ErrValidation
	}
	if decision != enums.DecisionAccept && decision != enums.DecisionReject {
		return Outcome{}, ErrValidation
	}
	if s.store == nil {
		return Outcome{}, fmt.Errorf("submission store is not configured")
	}

	record, err := s.store.Decide(ctx, submissionID, decision, moderatorID)
	if err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrSubmissionNotFound):
			return Outcome{}, ErrSubmissionNotFound
		case errors.Is(err, pgrepo.ErrAlreadyDecided):
			return Outcome{}, ErrAlreadyDecided
		}
		return Outcome{}, fmt.Errorf("decide submission: %w", err)
	}

	return Outcome{
		Decision:   decision,
		Submission: fromSubmissionRecord(record.Submission),
		Account: accounts.Account{
			ID:        record.Account.ID,
			Identity:  record.Account.Identity,
			Handle:    record.Account.Handle,
			Points:    record.Account.Points,
			CreatedAt: record.Account.CreatedAt,
		},
	}, nil
}

// PendingCount reports the moderation backlog.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("submission store is not configured")
	}
	return s.store.CountPending(ctx)
}

func fromSubmissionRecord(record pgrepo.SubmissionRecord) Submission {
	return Submission{
		ID:          record.ID,
		AccountID:   record.AccountID,
		Kind:        record.Kind,
		Status:      record.Status,
		CreatedAt:   record.CreatedAt,
		DecidedAt:   record.DecidedAt,
		ModeratorID: record.ModeratorID,
	}
}
