package collection

import (
	"context"
	"time"
)

// Filter narrows collection listings. Zero values are ignored. Settlement
// selects either the collector-visible legs (false) or the system settlement
// legs (true) when set.
type Filter struct {
	CollectorID string
	AccountID   string
	Statuses    []Status
	Settlement  *bool
	From        time.Time
	To          time.Time
}

// Matches reports whether the collection passes the filter.
func (f Filter) Matches(c Collection) bool {
	if f.CollectorID != "" && c.CollectorID != f.CollectorID {
		return false
	}
	if f.AccountID != "" && c.AccountID != f.AccountID {
		return false
	}
	if f.Settlement != nil && c.Settlement != *f.Settlement {
		return false
	}
	if !f.From.IsZero() && c.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && c.CreatedAt.After(f.To) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if c.Status == s {
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

// Store persists collections with the same compare-and-set transition
// contract as the other entity stores.
type Store interface {
	Create(ctx context.Context, c Collection) (Collection, error)
	Get(ctx context.Context, id string) (Collection, error)
	List(ctx context.Context, filter Filter) ([]Collection, error)
	// FindSettlement returns the settlement leg paired with the given
	// collector-visible entry.
	FindSettlement(ctx context.Context, pairID string) (Collection, error)
	Transition(ctx context.Context, id string, from []Status, to Status, mutate func(*Collection)) (Collection, error)
}
