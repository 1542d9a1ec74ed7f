// Package report builds reconciled cash-flow summaries. Two authoritative
// projections exist on purpose: user-scoped reports read the wallets' stored
// lifetime counters, account-scoped reports recompute from the filtered
// ledger. They are different views of the same money and are not forced to
// agree.
package report

import (
	"context"
	"time"

	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/ledger"
	"github.com/fieldpay/fieldpay/internal/money"
	"github.com/fieldpay/fieldpay/internal/wallet"
)

// Directory resolves role membership. Role evaluation lives outside the
// core.
type Directory interface {
	UsersInRole(ctx context.Context, role string) ([]string, error)
}

// ScopeKind selects the report projection.
type ScopeKind string

const (
	ScopeSelf  ScopeKind = "self"
	ScopeUsers ScopeKind = "users"
	ScopeRole  ScopeKind = "role"
	ScopeAll   ScopeKind = "all"
)

// Scope names the set of wallets a report covers.
type Scope struct {
	Kind    ScopeKind
	UserID  string
	UserIDs []string
	Role    string
}

// Filter narrows the ledger-backed projections. The wallet-counter path
// reads lifetime totals and ignores date bounds; this is what guarantees
// exact parity between the self view and the all-users view filtered to one
// user.
type Filter struct {
	From time.Time
	To   time.Time
}

// UserLine is one user's row in a multi-user summary.
type UserLine struct {
	UserID  string
	CashIn  int64
	CashOut int64
	Balance int64
}

// Summary is a reconciled cash-flow report.
type Summary struct {
	CashIn        int64
	CashOut       int64
	Balance       int64
	PerInstrument map[money.Instrument]int64
	PerUser       []UserLine
}

// Engine reads the wallet, ledger, and entity stores to produce scoped
// summaries. Reads run concurrently with settlements and observe either
// pre- or post-settlement state, never a partial one.
type Engine struct {
	wallets   wallet.Store
	entries   ledger.Store
	directory Directory
}

// NewEngine builds a reporting engine.
func NewEngine(wallets wallet.Store, entries ledger.Store, directory Directory) *Engine {
	return &Engine{wallets: wallets, entries: entries, directory: directory}
}

// Wallet produces a user-scoped summary from the stored wallet counters.
func (e *Engine) Wallet(ctx context.Context, scope Scope, filter Filter) (Summary, error) {
	wallets, err := e.resolve(ctx, scope)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{PerInstrument: make(map[money.Instrument]int64)}
	for _, w := range wallets {
		summary.CashIn += w.Balances.CashIn
		summary.CashOut += w.Balances.CashOut
		summary.Balance += w.Balances.Total()
		for _, instrument := range money.Instruments() {
			summary.PerInstrument[instrument] += w.Balances.Get(instrument)
		}
		summary.PerUser = append(summary.PerUser, UserLine{
			UserID:  w.UserID,
			CashIn:  w.Balances.CashIn,
			CashOut: w.Balances.CashOut,
			Balance: w.Balances.Total(),
		})
	}

	if scope.Kind == ScopeAll {
		// Transfers net to zero across the whole system: one wallet's
		// credit is another's debit, so they are not system-wide flows.
		// Strip their contribution from the summed counters.
		inAdj, outAdj, err := e.transferAdjustment(ctx)
		if err != nil {
			return Summary{}, err
		}
		summary.CashIn -= inAdj
		summary.CashOut -= outAdj
	}

	return summary, nil
}

// Account produces an account-scoped summary computed purely from the
// filtered ledger; no parity wallet exists for pooled accounts.
func (e *Engine) Account(ctx context.Context, accountID string, filter Filter) (Summary, error) {
	entries, err := e.entries.ListByOwner(ctx, ledger.OwnerAccount, accountID, ledger.Filter{From: filter.From, To: filter.To})
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{PerInstrument: make(map[money.Instrument]int64)}
	for _, entry := range entries {
		switch entry.Direction {
		case money.Credit:
			summary.CashIn += entry.Amount
			summary.PerInstrument[entry.Instrument] += entry.Amount
		case money.Debit:
			summary.CashOut += entry.Amount
			summary.PerInstrument[entry.Instrument] -= entry.Amount
		}
	}
	summary.Balance = summary.CashIn - summary.CashOut
	return summary, nil
}

func (e *Engine) resolve(ctx context.Context, scope Scope) ([]wallet.Wallet, error) {
	switch scope.Kind {
	case ScopeSelf:
		if scope.UserID == "" {
			return nil, &errs.ValidationError{Field: "userId", Reason: "required for self scope"}
		}
		w, err := e.wallets.GetOrCreate(ctx, scope.UserID)
		if err != nil {
			return nil, err
		}
		return []wallet.Wallet{w}, nil
	case ScopeUsers:
		return e.wallets.List(ctx, scope.UserIDs)
	case ScopeRole:
		if e.directory == nil {
			return nil, &errs.ValidationError{Field: "role", Reason: "no directory configured"}
		}
		members, err := e.directory.UsersInRole(ctx, scope.Role)
		if err != nil {
			return nil, err
		}
		return e.wallets.List(ctx, members)
	case ScopeAll:
		return e.wallets.All(ctx)
	default:
		return nil, &errs.ValidationError{Field: "scope", Reason: "unknown scope kind"}
	}
}

// transferAdjustment sums the transfer flows recorded against user wallets.
// Settlements added to the counters; reversals already took their share back
// out, so they subtract here. The counters being corrected are lifetime
// totals, so the adjustment reads the whole ledger regardless of any
// caller-supplied date window.
func (e *Engine) transferAdjustment(ctx context.Context) (cashIn int64, cashOut int64, err error) {
	entries, err := e.entries.All(ctx, ledger.Filter{
		Kinds: []ledger.Kind{ledger.KindTransferSettlement, ledger.KindTransferReversal},
	})
	if err != nil {
		return 0, 0, err
	}
	for _, entry := range entries {
		if entry.OwnerKind != ledger.OwnerUser {
			continue
		}
		switch {
		case entry.Kind == ledger.KindTransferSettlement && entry.Direction == money.Credit:
			cashIn += entry.Amount
		case entry.Kind == ledger.KindTransferSettlement && entry.Direction == money.Debit:
			cashOut += entry.Amount
		case entry.Kind == ledger.KindTransferReversal && entry.Direction == money.Debit:
			// Mirror of a settlement credit.
			cashIn -= entry.Amount
		case entry.Kind == ledger.KindTransferReversal && entry.Direction == money.Credit:
			// Mirror of a settlement debit.
			cashOut -= entry.Amount
		}
	}
	return cashIn, cashOut, nil
}
