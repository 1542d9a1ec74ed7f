package collection

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
	storage map[string]Collection
}

// NewMemoryStore constructs an in-memory collection store for tests and dev mode.
func NewMemoryStore() Store {
	return &memoryStore{storage: make(map[string]Collection)}
}

func (s *memoryStore) Create(_ context.Context, c Collection) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.storage[c.ID] = c
	return c, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.storage[id]
	if !ok {
		return Collection{}, &errs.NotFoundError{Kind: "collection", ID: id}
	}
	return c, nil
}

func (s *memoryStore) List(_ context.Context, filter Filter) ([]Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Collection
	for _, c := range s.storage {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) FindSettlement(_ context.Context, pairID string) (Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.storage {
		if c.Settlement && c.PairID == pairID {
			return c, nil
		}
	}
	return Collection{}, &errs.NotFoundError{Kind: "collection settlement", ID: pairID}
}

func (s *memoryStore) Transition(_ context.Context, id string, from []Status, to Status, mutate func(*Collection)) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.storage[id]
	if !ok {
		return Collection{}, &errs.NotFoundError{Kind: "collection", ID: id}
	}
	if !statusIn(c.Status, from) {
		return Collection{}, &errs.StateConflictError{Kind: "collection", ID: id, From: string(c.Status), To: string(to)}
	}
	if mutate != nil {
		mutate(&c)
	}
	c.Status = to
	c.UpdatedAt = time.Now().UTC()
	s.storage[id] = c
	return c, nil
}

func statusIn(s Status, set []Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}
