package account

import (
	"time"

	"github.com/fieldpay/fieldpay/internal/money"
)

// Account is a pooled organizational balance ("payment mode") used as a
// funding and collection point, distinct from a personal wallet.
type Account struct {
	ID         string
	ModeName   string
	Instrument money.Instrument

	// AutoPay routes collection settlements to ReceiverUserID instead of
	// the collector.
	AutoPay        bool
	ReceiverUserID string

	ShowInCollection bool
	ShowInExpense    bool
	ShowInTransfer   bool
	Active           bool

	Balances  money.Balances
	CreatedAt time.Time
	UpdatedAt time.Time
}
