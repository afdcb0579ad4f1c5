package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrysorokin/mediapoints/backend/internal/domain/enums"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadyDecided     = errors.New("submission already decided")
)

type SubmissionRepo struct {
	pool *pgxpool.Pool
}

type SubmissionRecord struct {
	ID          int64
	AccountID   int64
	Kind        enums.MediaKind
	Status      enums.SubmissionStatus
	CreatedAt   time.Time
	DecidedAt   *time.Time
	ModeratorID *int64
}

type DecisionRecord struct {
	Submission SubmissionRecord
	Account    AccountRecord
}

func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

func (r *SubmissionRepo) Create(ctx context.Context, accountID int64, kind enums.MediaKind) (SubmissionRecord, error) {
	if r.pool == nil {
		return SubmissionRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if accountID <= 0 {
		return SubmissionRecord{}, fmt.Errorf("invalid account id")
	}

	var record SubmissionRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO submissions (account_id, kind, status, created_at)
VALUES ($1, $2, 'pending', NOW())
RETURNING id, account_id, kind, status, created_at, decided_at, moderator_id
`, accountID, string(kind)).Scan(
		&record.ID, &record.AccountID, &record.Kind, &record.Status,
		&record.CreatedAt, &record.DecidedAt, &record.ModeratorID)
	if err != nil {
		return SubmissionRecord{}, fmt.Errorf("insert submission: %w", err)
	}

	return record, nil
}

func (r *SubmissionRepo) GetByID(ctx context.Context, submissionID int64) (SubmissionRecord, error) {
	if r.pool == nil {
		return SubmissionRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if submissionID <= 0 {
		return SubmissionRecord{}, fmt.Errorf("invalid submission id")
	}

	var record SubmissionRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, account_id, kind, status, created_at, decided_at, moderator_id
FROM submissions
WHERE id = $1
`, submissionID).Scan(
		&record.ID, &record.AccountID, &record.Kind, &record.Status,
		&record.CreatedAt, &record.DecidedAt, &record.ModeratorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SubmissionRecord{}, ErrSubmissionNotFound
		}
		return SubmissionRecord{}, fmt.Errorf("get submission by id: %w", err)
	}

	return record, nil
}

// Decide performs the terminal transition and, for an accept, the point
// credit inside one transaction. The conditional UPDATE on status = 'pending'
// guarantees at most one decision wins; the loser observes the terminal row
// and gets ErrAlreadyDecided.
func (r *SubmissionRepo) Decide(ctx context.Context, submissionID int64, decision enums.Decision, moderatorID int64) (DecisionRecord, error) {
	if r.pool == nil {
		return DecisionRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if submissionID <= 0 {
		return DecisionRecord{}, fmt.Errorf("invalid submission id")
	}

	var result DecisionRecord
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		sub := &result.Submission
		err := tx.QueryRow(ctx, `
UPDATE submissions
SET status = $2, decided_at = NOW(), moderator_id = $3
WHERE id = $1 AND status = 'pending'
RETURNING id, account_id, kind, status, created_at, decided_at, moderator_id
`, submissionID, string(decision.Status()), moderatorID).Scan(
			&sub.ID, &sub.AccountID, &sub.Kind, &sub.Status,
			&sub.CreatedAt, &sub.DecidedAt, &sub.ModeratorID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.classifyMissedDecision(ctx, tx, submissionID)
			}
			return fmt.Errorf("apply submission decision: %w", err)
		}

		account := &result.Account
		if decision == enums.DecisionAccept {
			err = tx.QueryRow(ctx, `
UPDATE accounts
SET points = points + 1, updated_at = NOW()
WHERE id = $1
RETURNING id, identity, handle, points, created_at
`, sub.AccountID).Scan(&account.ID, &account.Identity, &account.Handle, &account.Points, &account.CreatedAt)
			if err != nil {
				return fmt.Errorf("credit account points: %w", err)
			}
			return nil
		}

		err = tx.QueryRow(ctx, `
SELECT id, identity, handle, points, created_at
FROM accounts
WHERE id = $1
`, sub.AccountID).Scan(&account.ID, &account.Identity, &account.Handle, &account.Points, &account.CreatedAt)
		if err != nil {
			return fmt.Errorf("load submission account: %w", err)
		}

		return nil
	})
	if err != nil {
		return DecisionRecord{}, err
	}

	return result, nil
}

func (r *SubmissionRepo) classifyMissedDecision(ctx context.Context, tx pgx.Tx, submissionID int64) error {
	var status string
	err := tx.QueryRow(ctx, `
SELECT status FROM submissions WHERE id = $1
`, submissionID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSubmissionNotFound
		}
		return fmt.Errorf("inspect decided submission: %w", err)
	}
	return ErrAlreadyDecided
}

func (r *SubmissionRepo) CountPending(ctx context.Context) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM submissions
WHERE status = 'pending'
`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending submissions: %w", err)
	}

	return count, nil
}
