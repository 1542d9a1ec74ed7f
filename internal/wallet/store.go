package wallet

import (
	"context"

	"github.com/fieldpay/fieldpay/internal/money"
)

// Store persists wallet records.
//
// ApplyDelta is the only mutation path and must be atomic per wallet: the
// read-modify-write happens under the store's own concurrency control so two
// concurrent settlements against the same wallet never interleave. A delta
// whose instrument amount would push the bucket negative fails with
// errs.ErrInsufficientFunds and leaves the wallet untouched. Counter deltas
// floor at zero.
type Store interface {
	// GetOrCreate returns the wallet, creating an empty one on first access.
	GetOrCreate(ctx context.Context, userID string) (Wallet, error)
	// Get returns the wallet or errs.NotFoundError. Used by read paths that
	// must not create records as a side effect.
	Get(ctx context.Context, userID string) (Wallet, error)
	// ApplyDelta atomically mutates the wallet, creating it if absent, and
	// returns the post-op record.
	ApplyDelta(ctx context.Context, userID string, delta money.Delta) (Wallet, error)
	// List returns wallets for the given users, skipping users that have
	// never touched money.
	List(ctx context.Context, userIDs []string) ([]Wallet, error)
	// All returns every wallet.
	All(ctx context.Context) ([]Wallet, error)
}
