package transfer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldpay/fieldpay/internal/errs"
)

type memoryStore struct {
	mu      sync.RWMutex
	storage map[string]Transfer
}

// NewMemoryStore constructs an in-memory transfer store for tests and dev mode.
func NewMemoryStore() Store {
	return &memoryStore{storage: make(map[string]Transfer)}
}

func (s *memoryStore) Create(_ context.Context, t Transfer) (Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.storage[t.ID] = t
	return t, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.storage[id]
	if !ok {
		return Transfer{}, &errs.NotFoundError{Kind: "transfer", ID: id}
	}
	return t, nil
}

func (s *memoryStore) List(_ context.Context, filter Filter) ([]Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Transfer
	for _, t := range s.storage {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) Transition(_ context.Context, id string, from []Status, to Status, mutate func(*Transfer)) (Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.storage[id]
	if !ok {
		return Transfer{}, &errs.NotFoundError{Kind: "transfer", ID: id}
	}
	if !statusIn(t.Status, from) {
		return Transfer{}, &errs.StateConflictError{Kind: "transfer", ID: id, From: string(t.Status), To: string(to)}
	}
	if mutate != nil {
		mutate(&t)
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	s.storage[id] = t
	return t, nil
}

func statusIn(s Status, set []Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}
