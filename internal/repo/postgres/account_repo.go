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

var ErrAccountNotFound = errors.New("account not found")

type AccountRepo struct {
	pool *pgxpool.Pool
}

type AccountRecord struct {
	ID        int64
	Identity  string
	Handle    string
	Points    int64
	CreatedAt time.Time
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) FindByIdentity(ctx context.Context, identity string) (AccountRecord, error) {
	if r.pool == nil {
		return AccountRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(identity) == "" {
		return AccountRecord{}, fmt.Errorf("identity is required")
	}

	var account AccountRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, identity, handle, points, created_at
FROM accounts
WHERE identity = $1
`, strings.TrimSpace(identity)).Scan(&account.ID, &account.Identity, &account.Handle, &account.Points, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountRecord{}, ErrAccountNotFound
		}
		return AccountRecord{}, fmt.Errorf("find account by identity: %w", err)
	}

	return account, nil
}

func (r *AccountRepo) FindByID(ctx context.Context, accountID int64) (AccountRecord, error) {
	if r.pool == nil {
		return AccountRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if accountID <= 0 {
		return AccountRecord{}, fmt.Errorf("invalid account id")
	}

	var account AccountRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, identity, handle, points, created_at
FROM accounts
WHERE id = $1
`, accountID).Scan(&account.ID, &account.Identity, &account.Handle, &account.Points, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountRecord{}, ErrAccountNotFound
		}
		return AccountRecord{}, fmt.Errorf("find account by id: %w", err)
	}

	return account, nil
}

// FindOrCreate keeps one row per identity. A repeated call for a known
// identity refreshes the handle when a non-empty one is supplied and never
// touches the points balance.
func (r *AccountRepo) FindOrCreate(ctx context.Context, identity, handle string) (AccountRecord, error) {
	if r.pool == nil {
		return AccountRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(identity) == "" {
		return AccountRecord{}, fmt.Errorf("identity is required")
	}

	var account AccountRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO accounts (identity, handle, points, created_at, updated_at)
VALUES ($1, $2, 0, NOW(), NOW())
ON CONFLICT (identity) DO UPDATE SET
	handle = COALESCE(NULLIF(EXCLUDED.handle, ''), accounts.handle),
	updated_at = NOW()
RETURNING id, identity, handle, points, created_at
`, strings.TrimSpace(identity), strings.TrimSpace(handle)).Scan(
		&account.ID, &account.Identity, &account.Handle, &account.Points, &account.CreatedAt)
	if err != nil {
		return AccountRecord{}, fmt.Errorf("find or create account: %w", err)
	}

	return account, nil
}

// IncrementPoints applies the delta in a single UPDATE so concurrent credits
// never lose updates.
func (r *AccountRepo) IncrementPoints(ctx context.Context, accountID, delta int64) (AccountRecord, error) {
	if r.pool == nil {
		return AccountRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if accountID <= 0 {
		return AccountRecord{}, fmt.Errorf("invalid account id")
	}

	var account AccountRecord
	err := r.pool.QueryRow(ctx, `
UPDATE accounts
SET points = points + $2, updated_at = NOW()
WHERE id = $1
RETURNING id, identity, handle, points, created_at
`, accountID, delta).Scan(&account.ID, &account.Identity, &account.Handle, &account.Points, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountRecord{}, ErrAccountNotFound
		}
		return AccountRecord{}, fmt.Errorf("increment account points: %w", err)
	}

	return account, nil
}
