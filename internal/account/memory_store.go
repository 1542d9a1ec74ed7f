package account

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/money"
)

type memoryStore struct {
	mu      sync.RWMutex
	storage map[string]Account
	byName  map[string]string
}

// NewMemoryStore constructs an in-memory account store for tests and dev mode.
func NewMemoryStore() Store {
	return &memoryStore{storage: make(map[string]Account), byName: make(map[string]string)}
}

func (s *memoryStore) Create(_ context.Context, acct Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ModeName == "" {
		return Account{}, &errs.ValidationError{Field: "modeName", Reason: "required"}
	}
	if !acct.Instrument.Valid() {
		return Account{}, &errs.ValidationError{Field: "instrument", Reason: "unknown instrument"}
	}
	if _, exists := s.byName[acct.ModeName]; exists {
		return Account{}, &errs.ValidationError{Field: "modeName", Reason: "already in use"}
	}

	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = now
	}
	acct.UpdatedAt = now

	s.storage[acct.ID] = acct
	s.byName[acct.ModeName] = acct.ID
	return acct, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.storage[id]
	if !ok {
		return Account{}, &errs.NotFoundError{Kind: "account", ID: id}
	}
	return acct, nil
}

func (s *memoryStore) GetByName(_ context.Context, modeName string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[modeName]
	if !ok {
		return Account{}, &errs.NotFoundError{Kind: "account", ID: modeName}
	}
	return s.storage[id], nil
}

func (s *memoryStore) List(_ context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(), nil
}

func (s *memoryStore) SetActive(_ context.Context, id string, active bool) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.storage[id]
	if !ok {
		return Account{}, &errs.NotFoundError{Kind: "account", ID: id}
	}
	acct.Active = active
	acct.UpdatedAt = time.Now().UTC()
	s.storage[id] = acct
	return acct, nil
}

func (s *memoryStore) ApplyDelta(_ context.Context, id string, delta money.Delta) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.storage[id]
	if !ok {
		return Account{}, &errs.NotFoundError{Kind: "account", ID: id}
	}
	if acct.Balances.Get(delta.Instrument)+delta.Amount < 0 {
		return Account{}, errs.ErrInsufficientFunds
	}
	acct.Balances = delta.Apply(acct.Balances)
	acct.UpdatedAt = time.Now().UTC()
	s.storage[id] = acct
	return acct, nil
}

func (s *memoryStore) First(_ context.Context) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acct := range s.sortedLocked() {
		if acct.Active && acct.ShowInCollection {
			return acct, nil
		}
	}
	return Account{}, &errs.NotFoundError{Kind: "account", ID: "disbursement source"}
}

func (s *memoryStore) sortedLocked() []Account {
	accounts := make([]Account, 0, len(s.storage))
	for _, acct := range s.storage {
		accounts = append(accounts, acct)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts
}
