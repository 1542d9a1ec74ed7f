package expense

import (
	"time"

	"github.com/fieldpay/fieldpay/internal/money"
)

// Status is the expense approval state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusFlagged  Status = "flagged"
)

// Expense is a reimbursement claim. Only the Approved transition moves
// money: the disbursement account is debited and the owner's wallet
// credited.
type Expense struct {
	ID         string
	OwnerID    string
	CreatedBy  string
	Amount     int64
	Instrument money.Instrument
	Category   string
	Notes      string

	Status     Status
	ApprovedBy string
	ApprovedAt time.Time

	FlagReason string
	FlaggedBy  string
	FlaggedAt  time.Time

	Response   string
	ResponseAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
