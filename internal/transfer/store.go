package transfer

import (
	"context"
	"time"
)

// Filter narrows transfer listings. Zero values are ignored. UserID matches
// either side of the transfer.
type Filter struct {
	UserID   string
	Statuses []Status
	From     time.Time
	To       time.Time
}

// Matches reports whether the transfer passes the filter.
func (f Filter) Matches(t Transfer) bool {
	if f.UserID != "" && t.SenderID != f.UserID && t.ReceiverID != f.UserID {
		return false
	}
	if !f.From.IsZero() && t.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.CreatedAt.After(f.To) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
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

// Store persists transfers with the same compare-and-set transition contract
// as the expense store.
type Store interface {
	Create(ctx context.Context, t Transfer) (Transfer, error)
	Get(ctx context.Context, id string) (Transfer, error)
	List(ctx context.Context, filter Filter) ([]Transfer, error)
	Transition(ctx context.Context, id string, from []Status, to Status, mutate func(*Transfer)) (Transfer, error)
}
