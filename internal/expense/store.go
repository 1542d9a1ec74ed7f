package expense

import (
	"context"
	"time"
)

// Filter narrows expense listings. Zero values are ignored.
type Filter struct {
	OwnerID  string
	Statuses []Status
	From     time.Time
	To       time.Time
}

// Matches reports whether the expense passes the filter.
func (f Filter) Matches(e Expense) bool {
	if f.OwnerID != "" && e.OwnerID != f.OwnerID {
		return false
	}
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.CreatedAt.After(f.To) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if e.Status == s {
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

// Store persists expenses. Transition performs the status compare-and-set:
// the "current status is one of from" check happens atomically with the
// write, so racing duplicate approvals collapse to one winner and a
// StateConflictError for the rest.
type Store interface {
	Create(ctx context.Context, e Expense) (Expense, error)
	Get(ctx context.Context, id string) (Expense, error)
	List(ctx context.Context, filter Filter) ([]Expense, error)
	Transition(ctx context.Context, id string, from []Status, to Status, mutate func(*Expense)) (Expense, error)
}
