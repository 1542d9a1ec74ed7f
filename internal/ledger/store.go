package ledger

import (
	"context"
	"time"
)

// Filter narrows ledger queries. Zero values are ignored.
type Filter struct {
	From  time.Time
	To    time.Time
	Kinds []Kind
}

// Matches reports whether the entry passes the filter.
func (f Filter) Matches(e Entry) bool {
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.CreatedAt.After(f.To) {
		return false
	}
	if len(f.Kinds) > 0 {
		found := false
		for _, k := range f.Kinds {
			if e.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Store is the append-only ledger backend.
type Store interface {
	Append(ctx context.Context, entry Entry) (Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	ListByOwner(ctx context.Context, ownerKind OwnerKind, ownerID string, filter Filter) ([]Entry, error)
	ListByRelated(ctx context.Context, related Related) ([]Entry, error)
	All(ctx context.Context, filter Filter) ([]Entry, error)
}
