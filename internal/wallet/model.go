package wallet

import (
	"time"

	"github.com/fieldpay/fieldpay/internal/money"
)

// Wallet is the per-user balance record. It is created lazily on first
// access, mutated only through the balance engine, and never deleted.
type Wallet struct {
	UserID    string
	Balances  money.Balances
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total returns the sum of the three instrument balances.
func (w Wallet) Total() int64 {
	return w.Balances.Total()
}
