// Package engine is the sole mutator of wallet and account balances. Every
// balance change flows through Apply, which pairs the atomic store delta with
// exactly one appended ledger entry carrying the post-op snapshot.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldpay/fieldpay/internal/account"
	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/ledger"
	"github.com/fieldpay/fieldpay/internal/money"
	"github.com/fieldpay/fieldpay/internal/wallet"
)

// OwnerRef identifies the balance record an operation targets.
type OwnerRef struct {
	Kind ledger.OwnerKind
	ID   string
}

// UserOwner targets a personal wallet.
func UserOwner(userID string) OwnerRef {
	return OwnerRef{Kind: ledger.OwnerUser, ID: userID}
}

// AccountOwner targets a pooled account.
func AccountOwner(accountID string) OwnerRef {
	return OwnerRef{Kind: ledger.OwnerAccount, ID: accountID}
}

// Stage separates forward settlements from their reversals. A reversal
// performs the mirror instrument operation and decrements (floored at zero)
// the counter its forward counterpart incremented.
type Stage string

const (
	Forward  Stage = "forward"
	Reversal Stage = "reversal"
)

// Op describes one balance operation.
type Op struct {
	Owner      OwnerRef
	Instrument money.Instrument
	Amount     int64
	Direction  money.Direction
	Stage      Stage

	// PassThrough models money that passes through without resting: both
	// counters move, the instrument balance does not. Direction is ignored.
	PassThrough bool

	Kind        ledger.Kind
	Related     ledger.Related
	PerformedBy string
	Notes       string
}

// Engine routes balance deltas to the owning store and appends the matching
// ledger entry.
type Engine struct {
	wallets  wallet.Store
	accounts account.Store
	entries  ledger.Store
}

// New builds a balance engine over the given stores.
func New(wallets wallet.Store, accounts account.Store, entries ledger.Store) *Engine {
	return &Engine{wallets: wallets, accounts: accounts, entries: entries}
}

// Apply validates and executes one balance operation, returning the post-op
// balance snapshot. A forward debit that would go negative fails with
// ErrInsufficientFunds; a reversal that cannot be absorbed fails with
// ErrReversalInconsistency instead of flooring silently.
func (e *Engine) Apply(ctx context.Context, op Op) (money.Balances, error) {
	if op.Amount <= 0 {
		return money.Balances{}, &errs.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !op.Instrument.Valid() {
		return money.Balances{}, &errs.ValidationError{Field: "instrument", Reason: fmt.Sprintf("unknown instrument %q", op.Instrument)}
	}
	if !op.PassThrough && !op.Direction.Valid() {
		return money.Balances{}, &errs.ValidationError{Field: "direction", Reason: "must be credit or debit"}
	}
	if op.Owner.ID == "" {
		return money.Balances{}, &errs.ValidationError{Field: "owner", Reason: "required"}
	}

	delta, entryDirection := op.delta()

	snapshot, err := e.applyDelta(ctx, op.Owner, delta)
	if err != nil {
		if op.Stage == Reversal && errors.Is(err, errs.ErrInsufficientFunds) {
			return money.Balances{}, fmt.Errorf("%w: %s %s cannot absorb %d %s",
				errs.ErrReversalInconsistency, op.Owner.Kind, op.Owner.ID, op.Amount, op.Instrument)
		}
		return money.Balances{}, err
	}

	entry := ledger.Entry{
		OwnerKind:   op.Owner.Kind,
		OwnerID:     op.Owner.ID,
		Kind:        op.Kind,
		Instrument:  op.Instrument,
		Amount:      op.Amount,
		Direction:   entryDirection,
		Related:     op.Related,
		Snapshot:    snapshot,
		PerformedBy: op.PerformedBy,
		Notes:       op.Notes,
	}
	if _, err := e.entries.Append(ctx, entry); err != nil {
		// Undo the balance delta so the operation stays all-or-nothing.
		inverse := money.Delta{Instrument: delta.Instrument, Amount: -delta.Amount, CashIn: -delta.CashIn, CashOut: -delta.CashOut}
		if _, undoErr := e.applyDelta(ctx, op.Owner, inverse); undoErr != nil {
			return money.Balances{}, fmt.Errorf("ledger append failed and compensation failed: %v (append: %w)", undoErr, err)
		}
		return money.Balances{}, fmt.Errorf("ledger append: %w", err)
	}

	return snapshot, nil
}

// delta translates the operation into a store delta and the direction
// recorded on the ledger entry.
func (op Op) delta() (money.Delta, money.Direction) {
	if op.PassThrough {
		if op.Stage == Reversal {
			return money.Delta{Instrument: op.Instrument, CashIn: -op.Amount, CashOut: -op.Amount}, money.Debit
		}
		return money.Delta{Instrument: op.Instrument, CashIn: op.Amount, CashOut: op.Amount}, money.Credit
	}

	switch {
	case op.Stage == Forward && op.Direction == money.Credit:
		return money.Delta{Instrument: op.Instrument, Amount: op.Amount, CashIn: op.Amount}, money.Credit
	case op.Stage == Forward && op.Direction == money.Debit:
		return money.Delta{Instrument: op.Instrument, Amount: -op.Amount, CashOut: op.Amount}, money.Debit
	case op.Stage == Reversal && op.Direction == money.Credit:
		// Mirror of a forward credit: take the money back out and unwind
		// the cash-in counter.
		return money.Delta{Instrument: op.Instrument, Amount: -op.Amount, CashIn: -op.Amount}, money.Debit
	default:
		// Mirror of a forward debit: restore the money and unwind cash-out.
		return money.Delta{Instrument: op.Instrument, Amount: op.Amount, CashOut: -op.Amount}, money.Credit
	}
}

func (e *Engine) applyDelta(ctx context.Context, owner OwnerRef, delta money.Delta) (money.Balances, error) {
	switch owner.Kind {
	case ledger.OwnerUser:
		w, err := e.wallets.ApplyDelta(ctx, owner.ID, delta)
		if err != nil {
			return money.Balances{}, err
		}
		return w.Balances, nil
	case ledger.OwnerAccount:
		acct, err := e.accounts.ApplyDelta(ctx, owner.ID, delta)
		if err != nil {
			return money.Balances{}, err
		}
		return acct.Balances, nil
	default:
		return money.Balances{}, &errs.ValidationError{Field: "owner", Reason: fmt.Sprintf("unknown owner kind %q", owner.Kind)}
	}
}
