package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldpay/fieldpay/internal/errs"
)

type memoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	byID    map[string]int
}

// NewMemoryStore creates a concurrency-safe in-memory ledger for tests and
// dev mode.
func NewMemoryStore() Store {
	return &memoryStore{byID: make(map[string]int)}
}

func (s *memoryStore) Append(_ context.Context, entry Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.byID[entry.ID] = len(s.entries)
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return Entry{}, &errs.NotFoundError{Kind: "ledger entry", ID: id}
	}
	return s.entries[idx], nil
}

func (s *memoryStore) ListByOwner(_ context.Context, ownerKind OwnerKind, ownerID string, filter Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.OwnerKind == ownerKind && e.OwnerID == ownerID && filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memoryStore) ListByRelated(_ context.Context, related Related) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.Related == related {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memoryStore) All(_ context.Context, filter Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
