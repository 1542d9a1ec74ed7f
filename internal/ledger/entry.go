package ledger

import (
	"time"

	"github.com/fieldpay/fieldpay/internal/money"
)

// OwnerKind distinguishes wallet owners from pooled accounts.
type OwnerKind string

const (
	OwnerUser    OwnerKind = "user"
	OwnerAccount OwnerKind = "account"
)

// Kind labels the operation a ledger entry records.
type Kind string

const (
	KindFundsAdd             Kind = "funds_add"
	KindFundsWithdraw        Kind = "funds_withdraw"
	KindExpenseSettlement    Kind = "expense_settlement"
	KindExpenseReversal      Kind = "expense_reversal"
	KindTransferSettlement   Kind = "transfer_settlement"
	KindTransferReversal     Kind = "transfer_reversal"
	KindCollectionSettlement Kind = "collection_settlement"
	KindCollectionReversal   Kind = "collection_reversal"
	KindPassThrough          Kind = "pass_through"
)

// RelatedKind tags the entity family a ledger entry settles, if any.
type RelatedKind string

const (
	RelatedNone       RelatedKind = ""
	RelatedExpense    RelatedKind = "expense"
	RelatedTransfer   RelatedKind = "transfer"
	RelatedCollection RelatedKind = "collection"
)

// Related is a tagged reference to the entity whose approval produced the
// entry. Zero value means the entry stands alone (fund add/withdraw).
type Related struct {
	Kind RelatedKind
	ID   string
}

// Entry is one immutable record of a balance-affecting operation. Entries
// are write-once: there is no update or delete path.
type Entry struct {
	ID         string
	OwnerKind  OwnerKind
	OwnerID    string
	Kind       Kind
	Instrument money.Instrument
	Amount     int64
	Direction  money.Direction
	Related    Related

	// Snapshot is the owner's balance state immediately after the operation.
	Snapshot money.Balances

	PerformedBy string
	Notes       string
	CreatedAt   time.Time
}
