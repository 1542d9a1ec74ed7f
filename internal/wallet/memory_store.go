package wallet

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/money"
)

type memoryStore struct {
	mu      sync.RWMutex
	storage map[string]Wallet
}

// NewMemoryStore constructs an in-memory wallet store for tests and dev mode.
func NewMemoryStore() Store {
	return &memoryStore{storage: make(map[string]Wallet)}
}

func (s *memoryStore) GetOrCreate(_ context.Context, userID string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(userID), nil
}

func (s *memoryStore) getOrCreateLocked(userID string) Wallet {
	if w, ok := s.storage[userID]; ok {
		return w
	}
	now := time.Now().UTC()
	w := Wallet{UserID: userID, CreatedAt: now, UpdatedAt: now}
	s.storage[userID] = w
	return w
}

func (s *memoryStore) Get(_ context.Context, userID string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.storage[userID]
	if !ok {
		return Wallet{}, &errs.NotFoundError{Kind: "wallet", ID: userID}
	}
	return w, nil
}

func (s *memoryStore) ApplyDelta(_ context.Context, userID string, delta money.Delta) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.getOrCreateLocked(userID)
	if w.Balances.Get(delta.Instrument)+delta.Amount < 0 {
		return Wallet{}, errs.ErrInsufficientFunds
	}
	w.Balances = delta.Apply(w.Balances)
	w.UpdatedAt = time.Now().UTC()
	s.storage[userID] = w
	return w, nil
}

func (s *memoryStore) List(_ context.Context, userIDs []string) ([]Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wallets := make([]Wallet, 0, len(userIDs))
	for _, id := range userIDs {
		if w, ok := s.storage[id]; ok {
			wallets = append(wallets, w)
		}
	}
	return wallets, nil
}

func (s *memoryStore) All(_ context.Context) ([]Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wallets := make([]Wallet, 0, len(s.storage))
	for _, w := range s.storage {
		wallets = append(wallets, w)
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].UserID < wallets[j].UserID })
	return wallets, nil
}
