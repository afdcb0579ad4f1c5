package accounts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pgrepo "github.com/dmitrysorokin/mediapoints/backend/internal/repo/postgres"
)

type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*pgrepo.AccountRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byID: map[int64]*pgrepo.AccountRecord{}}
}

func (m *memoryStore) FindByIdentity(_ context.Context, identity string) (pgrepo.AccountRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.byID {
		if rec.Identity == identity {
			return *rec, nil
		}
	}
	return pgrepo.AccountRecord{}, pgrepo.ErrAccountNotFound
}

func (m *memoryStore) FindByID(_ context.Context, accountID int64) (pgrepo.AccountRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.byID[accountID]; ok {
		return *rec, nil
	}
	return pgrepo.AccountRecord{}, pgrepo.ErrAccountNotFound
}

func (m *memoryStore) FindOrCreate(_ context.Context, identity, handle string) (pgrepo.AccountRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.byID {
		if rec.Identity == identity {
			if handle != "" {
				rec.Handle = handle
			}
			return *rec, nil
		}
	}
	m.nextID++
	rec := &pgrepo.AccountRecord{
		ID:        m.nextID,
		Identity:  identity,
		Handle:    handle,
		Points:    0,
		CreatedAt: time.Now().UTC(),
	}
	m.byID[rec.ID] = rec
	return *rec, nil
}

func (m *memoryStore) IncrementPoints(_ context.Context, accountID, delta int64) (pgrepo.AccountRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[accountID]
	if !ok {
		return pgrepo.AccountRecord{}, pgrepo.ErrAccountNotFound
	}
	rec.Points += delta
	return *rec, nil
}

func TestFindOrCreateIsIdempotentPerIdentity(t *testing.T) {
	svc := NewService(newMemoryStore())
	ctx := context.Background()

	first, err := svc.FindOrCreate(ctx, "42", "alice")
	if err != nil {
		t.Fatalf("first find-or-create: %v", err)
	}
	if first.Points != 0 {
		t.Fatalf("new account should start with zero points, got %d", first.Points)
	}

	if _, err := svc.IncrementPoints(ctx, first.ID, 3); err != nil {
		t.Fatalf("increment points: %v", err)
	}

	second, err := svc.FindOrCreate(ctx, "42", "alice")
	if err != nil {
		t.Fatalf("second find-or-create: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected one account per identity: got ids %d and %d", first.ID, second.ID)
	}
	if second.Points != 3 {
		t.Fatalf("re-registration must not reset points: got %d", second.Points)
	}
}

func TestConcurrentIncrementsLoseNoUpdates(t *testing.T) {
	svc := NewService(newMemoryStore())
	ctx := context.Background()

	account, err := svc.FindOrCreate(ctx, "7", "bob")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.IncrementPoints(ctx, account.ID, 1); err != nil {
				t.Errorf("increment points: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := svc.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.Points != n {
		t.Fatalf("expected exactly %d points, got %d", n, got.Points)
	}
}

func TestGetByIdentityUnknownIsNotFound(t *testing.T) {
	svc := NewService(newMemoryStore())

	_, err := svc.GetByIdentity(context.Background(), "nobody")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestValidationErrors(t *testing.T) {
	svc := NewService(newMemoryStore())
	ctx := context.Background()

	if _, err := svc.GetByIdentity(ctx, "  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank identity, got %v", err)
	}
	if _, err := svc.GetByID(ctx, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero id, got %v", err)
	}
	if _, err := svc.IncrementPoints(ctx, -1, 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for negative id, got %v", err)
	}
}
