package expense

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
	storage map[string]Expense
}

// NewMemoryStore constructs an in-memory expense store for tests and dev mode.
func NewMemoryStore() Store {
	return &memoryStore{storage: make(map[string]Expense)}
}

func (s *memoryStore) Create(_ context.Context, e Expense) (Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	s.storage[e.ID] = e
	return e, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.storage[id]
	if !ok {
		return Expense{}, &errs.NotFoundError{Kind: "expense", ID: id}
	}
	return e, nil
}

func (s *memoryStore) List(_ context.Context, filter Filter) ([]Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Expense
	for _, e := range s.storage {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) Transition(_ context.Context, id string, from []Status, to Status, mutate func(*Expense)) (Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.storage[id]
	if !ok {
		return Expense{}, &errs.NotFoundError{Kind: "expense", ID: id}
	}
	if !statusIn(e.Status, from) {
		return Expense{}, &errs.StateConflictError{Kind: "expense", ID: id, From: string(e.Status), To: string(to)}
	}
	if mutate != nil {
		mutate(&e)
	}
	e.Status = to
	e.UpdatedAt = time.Now().UTC()
	s.storage[id] = e
	return e, nil
}

func statusIn(s Status, set []Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}
