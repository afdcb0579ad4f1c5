package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pgrepo "github.com/dmitrysorokin/mediapoints/backend/internal/repo/postgres"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrAccountNotFound = errors.New("account not found")
)

type Store interface {
	FindByIdentity(ctx context.Context, identity string) (pgrepo.AccountRecord, error)
	FindByID(ctx context.Context, accountID int64) (pgrepo.AccountRecord, error)
	FindOrCreate(ctx context.Context, identity, handle string) (pgrepo.AccountRecord, error)
	IncrementPoints(ctx context.Context, accountID, delta int64) (pgrepo.AccountRecord, error)
}

type Service struct {
	store Store
}

// Account is the public view served to clients and the chat channel.
type Account struct {
	ID        int64
	Identity  string
	Handle    string
	Points    int64
	CreatedAt time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) GetByIdentity(ctx context.Context, identity string) (Account, error) {
	if strings.TrimSpace(identity) == "" {
		return Account{}, ErrValidation
	}
	if s.store == nil {
		return Account{}, fmt.Errorf("account store is not configured")
	}

	record, err := s.store.FindByIdentity(ctx, strings.TrimSpace(identity))
	if err != nil {
		if errors.Is(err, pgrepo.ErrAccountNotFound) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("find account by identity: %w", err)
	}

	return fromRecord(record), nil
}

func (s *Service) GetByID(ctx context.Context, accountID int64) (Account, error) {
	if accountID <= 0 {
		return Account{}, ErrValidation
	}
	if s.store == nil {
		return Account{}, fmt.Errorf("account store is not configured")
	}

	record, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAccountNotFound) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("find account by id: %w", err)
	}

	return fromRecord(record), nil
}

// FindOrCreate registers the identity on first contact and is a cheap lookup
// afterwards. Points start at zero and survive re-registration.
func (s *Service) FindOrCreate(ctx context.Context, identity, handle string) (Account, error) {
	if strings.TrimSpace(identity) == "" {
		return Account{}, ErrValidation
	}
	if s.store == nil {
		return Account{}, fmt.Errorf("account store is not configured")
	}

	record, err := s.store.FindOrCreate(ctx, strings.TrimSpace(identity), strings.TrimSpace(handle))
	if err != nil {
		return Account{}, fmt.Errorf("find or create account: %w", err)
	}

	return fromRecord(record), nil
}

func (s *Service) IncrementPoints(ctx context.Context, accountID, delta int64) (Account, error) {
	if accountID <= 0 {
		return Account{}, ErrValidation
	}
	if s.store == nil {
		return Account{}, fmt.Errorf("account store is not configured")
	}

	record, err := s.store.IncrementPoints(ctx, accountID, delta)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAccountNotFound) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("increment account points: %w", err)
	}

	return fromRecord(record), nil
}

func fromRecord(record pgrepo.AccountRecord) Account {
	return Account{
		ID:        record.ID,
		Identity:  record.Identity,
		Handle:    record.Handle,
		Points:    record.Points,
		CreatedAt: record.CreatedAt,
	}
}
