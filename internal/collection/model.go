package collection

import (
	"time"

	"github.com/fieldpay/fieldpay/internal/money"
)

// Status is the collection verification state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
	StatusFlagged  Status = "flagged"
)

// Collection records money a collector brought in against a pooled account.
// Verification writes a pair of records: the collector-visible entry stays
// balance-inert, and a system-generated settlement entry (Settlement=true,
// PairID pointing back) is the only leg that affects balances. Reversals
// touch only the settlement leg.
type Collection struct {
	ID          string
	CollectorID string
	AccountID   string

	// ReceiverID is who the settlement credits. On the visible entry it is
	// the assigned receiver, if any; on the settlement entry it is the
	// resolved receiver after applying the account's auto-pay policy.
	ReceiverID string

	Amount     int64
	Instrument money.Instrument
	Notes      string

	Status     Status
	Settlement bool
	PairID     string

	VerifiedBy string
	VerifiedAt time.Time

	FlagReason string
	FlaggedBy  string
	FlaggedAt  time.Time

	Response   string
	ResponseAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
