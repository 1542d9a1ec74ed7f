package account

import (
	"context"

	"github.com/fieldpay/fieldpay/internal/money"
)

// Store persists pooled accounts. ApplyDelta carries the same atomicity
// contract as the wallet store: non-negative guard and write as one unit.
type Store interface {
	Create(ctx context.Context, acct Account) (Account, error)
	Get(ctx context.Context, id string) (Account, error)
	GetByName(ctx context.Context, modeName string) (Account, error)
	List(ctx context.Context) ([]Account, error)
	SetActive(ctx context.Context, id string, active bool) (Account, error)
	ApplyDelta(ctx context.Context, id string, delta money.Delta) (Account, error)
	// First returns the earliest-created active collection-visible account,
	// the designated disbursement source for approved expenses.
	First(ctx context.Context) (Account, error)
}
