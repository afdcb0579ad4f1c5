package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCodeInvalid = errors.New("verification code is invalid or expired")

type CodeRepo struct {
	pool *pgxpool.Pool
}

type CodeRecord struct {
	ID        int64
	Code      string
	Identity  string
	Handle    string
	Consumed  bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func NewCodeRepo(pool *pgxpool.Pool) *CodeRepo {
	return &CodeRepo{pool: pool}
}

// Issue invalidates every still-valid code held by the identity and inserts
// the fresh one in the same transaction, so at most one redeemable code exists
// per identity at any time.
func (r *CodeRepo) Issue(ctx context.Context, code, identity, handle string, expiresAt time.Time) (CodeRecord, error) {
	if r.pool == nil {
		return CodeRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(code) == "" || strings.TrimSpace(identity) == "" {
		return CodeRecord{}, fmt.Errorf("invalid code issue payload")
	}

	var record CodeRecord
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
UPDATE verification_codes
SET consumed = true
WHERE identity = $1 AND consumed = false
`, strings.TrimSpace(identity)); err != nil {
			return fmt.Errorf("invalidate prior codes: %w", err)
		}

		err := tx.QueryRow(ctx, `
INSERT INTO verification_codes (code, identity, handle, consumed, issued_at, expires_at)
VALUES ($1, $2, $3, false, NOW(), $4)
RETURNING id, code, identity, handle, consumed, issued_at, expires_at
`, strings.TrimSpace(code), strings.TrimSpace(identity), strings.TrimSpace(handle), expiresAt.UTC()).Scan(
			&record.ID, &record.Code, &record.Identity, &record.Handle,
			&record.Consumed, &record.IssuedAt, &record.ExpiresAt)
		if err != nil {
			return fmt.Errorf("insert verification code: %w", err)
		}

		return nil
	})
	if err != nil {
		return CodeRecord{}, err
	}

	return record, nil
}

// Redeem consumes a valid code and resolves its account in one transaction.
// The row lock serializes concurrent redemptions of the same code; a failure
// after the consume step rolls the consumed flag back, so a consumed code
// without an account cannot be observed.
func (r *CodeRepo) Redeem(ctx context.Context, code string) (AccountRecord, error) {
	if r.pool == nil {
		return AccountRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(code) == "" {
		return AccountRecord{}, ErrCodeInvalid
	}

	var account AccountRecord
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var record CodeRecord
		err := tx.QueryRow(ctx, `
SELECT id, code, identity, handle, consumed, issued_at, expires_at
FROM verification_codes
WHERE code = $1 AND consumed = false AND expires_at > NOW()
ORDER BY issued_at DESC, id DESC
LIMIT 1
FOR UPDATE
`, strings.TrimSpace(code)).Scan(
			&record.ID, &record.Code, &record.Identity, &record.Handle,
			&record.Consumed, &record.IssuedAt, &record.ExpiresAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCodeInvalid
			}
			return fmt.Errorf("select redeemable code: %w", err)
		}

		if _, err := tx.Exec(ctx, `
UPDATE verification_codes
SET consumed = true
WHERE id = $1
`, record.ID); err != nil {
			return fmt.Errorf("consume verification code: %w", err)
		}

		err = tx.QueryRow(ctx, `
INSERT INTO accounts (identity, handle, points, created_at, updated_at)
VALUES ($1, $2, 0, NOW(), NOW())
ON CONFLICT (identity) DO UPDATE SET
	handle = COALESCE(NULLIF(EXCLUDED.handle, ''), accounts.handle),
	updated_at = NOW()
RETURNING id, identity, handle, points, created_at
`, record.Identity, record.Handle).Scan(
			&account.ID, &account.Identity, &account.Handle, &account.Points, &account.CreatedAt)
		if err != nil {
			return fmt.Errorf("resolve account for redeemed code: %w", err)
		}

		return nil
	})
	if err != nil {
		return AccountRecord{}, err
	}

	return account, nil
}

// DeleteStaleBefore drops consumed and expired codes past the retention
// cutoff. Expiry alone makes a code unredeemable; this only bounds table
// growth.
func (r *CodeRepo) DeleteStaleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM verification_codes
WHERE (consumed = true OR expires_at < NOW()) AND issued_at < $1
`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete stale verification codes: %w", err)
	}

	return tag.RowsAffected(), nil
}
