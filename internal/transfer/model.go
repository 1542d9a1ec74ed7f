package transfer

import (
	"time"

	"github.com/fieldpay/fieldpay/internal/money"
)

// Status is the transfer approval state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusFlagged   Status = "flagged"
)

// Transfer moves money between two users' wallets in the same instrument.
// Only Completed transfers move money; the settlement is one debit/credit
// ledger pair tagged with both counterparties.
type Transfer struct {
	ID          string
	SenderID    string
	ReceiverID  string
	InitiatedBy string
	Amount      int64
	Instrument  money.Instrument
	Notes       string

	Status     Status
	ApprovedBy string
	ApprovedAt time.Time

	FlagReason string
	FlaggedBy  string
	FlaggedAt  time.Time

	Response   string
	ResponseAt time.Time

	// AutoPay marks transfers generated by an auto-pay collection route;
	// SystemGenerated marks records written by the system rather than a user.
	AutoPay         bool
	SystemGenerated bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
