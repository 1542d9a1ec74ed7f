package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldpay/fieldpay/internal/account"
	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/ledger"
	"github.com/fieldpay/fieldpay/internal/money"
	"github.com/fieldpay/fieldpay/internal/wallet"
)

func newTestEngine(t *testing.T) (*Engine, wallet.Store, account.Store, ledger.Store) {
	t.Helper()
	wallets := wallet.NewMemoryStore()
	accounts := account.NewMemoryStore()
	entries := ledger.NewMemoryStore()
	return New(wallets, accounts, entries), wallets, accounts, entries
}

func TestApplyCreditThenDebit(t *testing.T) {
	eng, wallets, _, entries := newTestEngine(t)
	ctx := context.Background()

	snap, err := eng.Apply(ctx, Op{
		Owner:      UserOwner("u1"),
		Instrument: money.Cash,
		Amount:     5_000,
		Direction:  money.Credit,
		Stage:      Forward,
		Kind:       ledger.KindFundsAdd,
	})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if snap.Cash != 5_000 || snap.CashIn != 5_000 || snap.CashOut != 0 {
		t.Fatalf("unexpected snapshot after credit: %+v", snap)
	}

	snap, err = eng.Apply(ctx, Op{
		Owner:      UserOwner("u1"),
		Instrument: money.Cash,
		Amount:     1_200,
		Direction:  money.Debit,
		Stage:      Forward,
		Kind:       ledger.KindFundsWithdraw,
	})
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if snap.Cash != 3_800 || snap.CashIn != 5_000 || snap.CashOut != 1_200 {
		t.Fatalf("unexpected snapshot after debit: %+v", snap)
	}

	w, err := wallets.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if w.Balances != snap {
		t.Fatalf("wallet and snapshot diverged: %+v vs %+v", w.Balances, snap)
	}

	got, err := entries.All(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(got))
	}
	if got[0].Snapshot.Cash != 5_000 || got[1].Snapshot.Cash != 3_800 {
		t.Fatalf("snapshots not post-op: %+v", got)
	}
}

func TestApplyInsufficientFunds(t *testing.T) {
	eng, _, _, entries := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Apply(ctx, Op{
		Owner:      UserOwner("u1"),
		Instrument: money.UPI,
		Amount:     100,
		Direction:  money.Debit,
		Stage:      Forward,
		Kind:       ledger.KindFundsWithdraw,
	})
	if !errors.Is(err, errs.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	got, _ := entries.All(ctx, ledger.Filter{})
	if len(got) != 0 {
		t.Fatalf("failed op must not append entries, got %d", len(got))
	}
}

func TestApplyReversalMirrorsForward(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.Apply(ctx, Op{
		Owner:      UserOwner("u1"),
		Instrument: money.Bank,
		Amount:     2_000,
		Direction:  money.Credit,
		Stage:      Forward,
		Kind:       ledger.KindExpenseSettlement,
	}); err != nil {
		t.Fatalf("forward credit: %v", err)
	}

	snap, err := eng.Apply(ctx, Op{
		Owner:      UserOwner("u1"),
		Instrument: money.Bank,
		Amount:     2_000,
		Direction:  money.Credit,
		Stage:      Reversal,
		Kind:       ledger.KindExpenseReversal,
	})
	if err != nil {
		t.Fatalf("reversal: %v", err)
	}
	if snap.Bank != 0 || snap.CashIn != 0 || snap.CashOut != 0 {
		t.Fatalf("reversal did not restore the pre-settlement state: %+v", snap)
	}
}

func TestApplyReversalInconsistency(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.Apply(ctx, Op{
		Owner:      UserOwner("u1"),
		Instrument: money.Cash,
		Amount:     1_000,
		Direction:  money.Credit,
		Stage:      Forward,
		Kind:       ledger.KindTransferSettlement,
	}); err != nil {
		t.Fatalf("seed credit: %v", err)
	}
	if _, err := eng.Apply(ctx, Op{
		Owner:      UserOwner("u1"),
		Instrument: money.Cash,
		Amount:     800,
		Direction:  money.Debit,
		Stage:      Forward,
		Kind:       ledger.KindFundsWithdraw,
	}); err != nil {
		t.Fatalf("spend: %v", err)
	}

	// Only 200 left, the 1000 credit cannot be taken back.
	_, err := eng.Apply(ctx, Op{
		Owner:      UserOwner("u1"),
		Instrument: money.Cash,
		Amount:     1_000,
		Direction:  money.Credit,
		Stage:      Reversal,
		Kind:       ledger.KindTransferReversal,
	})
	if !errors.Is(err, errs.ErrReversalInconsistency) {
		t.Fatalf("expected reversal inconsistency, got %v", err)
	}
}

func TestApplyCounterFloor(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.Apply(ctx, Op{
		Owner:      UserOwner("u1"),
		Instrument: money.Cash,
		Amount:     500,
		Direction:  money.Credit,
		Stage:      Forward,
		Kind:       ledger.KindFundsAdd,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := eng.Apply(ctx, Op{
		Owner:      UserOwner("u1"),
		Instrument: money.Cash,
		Amount:     500,
		Direction:  money.Debit,
		Stage:      Forward,
		Kind:       ledger.KindFundsWithdraw,
	}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	// Re-add so the balance can absorb a reversal whose counter underflows.
	if _, err := eng.Apply(ctx, Op{
		Owner:      UserOwner("u1"),
		Instrument: money.Cash,
		Amount:     900,
		Direction:  money.Credit,
		Stage:      Forward,
		Kind:       ledger.KindFundsAdd,
	}); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	// Reversal of a 700 debit: cash-out is only 500, it floors at zero.
	snap, err := eng.Apply(ctx, Op{
		Owner:      UserOwner("u1"),
		Instrument: money.Cash,
		Amount:     700,
		Direction:  money.Debit,
		Stage:      Reversal,
		Kind:       ledger.KindExpenseReversal,
	})
	if err != nil {
		t.Fatalf("reversal: %v", err)
	}
	if snap.CashOut != 0 {
		t.Fatalf("cash-out must floor at zero, got %d", snap.CashOut)
	}
	if snap.Cash != 1_600 {
		t.Fatalf("expected cash 1600, got %d", snap.Cash)
	}
}

func TestApplyPassThrough(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	snap, err := eng.Apply(ctx, Op{
		Owner:       UserOwner("u1"),
		Instrument:  money.UPI,
		Amount:      3_000,
		Stage:       Forward,
		PassThrough: true,
		Kind:        ledger.KindPassThrough,
	})
	if err != nil {
		t.Fatalf("pass-through: %v", err)
	}
	if snap.UPI != 0 {
		t.Fatalf("pass-through must not move the balance, got %d", snap.UPI)
	}
	if snap.CashIn != 3_000 || snap.CashOut != 3_000 {
		t.Fatalf("pass-through must move both counters: %+v", snap)
	}

	snap, err = eng.Apply(ctx, Op{
		Owner:       UserOwner("u1"),
		Instrument:  money.UPI,
		Amount:      3_000,
		Stage:       Reversal,
		PassThrough: true,
		Kind:        ledger.KindCollectionReversal,
	})
	if err != nil {
		t.Fatalf("pass-through reversal: %v", err)
	}
	if snap.CashIn != 0 || snap.CashOut != 0 || snap.UPI != 0 {
		t.Fatalf("pass-through reversal must zero the counters: %+v", snap)
	}
}

func TestApplyAccountOwner(t *testing.T) {
	eng, _, accounts, entries := newTestEngine(t)
	ctx := context.Background()

	now := time.Now().UTC()
	acct, err := accounts.Create(ctx, account.Account{
		ModeName:   "Office Cash",
		Instrument: money.Cash,
		Active:     true,
		CreatedAt:  now,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	snap, err := eng.Apply(ctx, Op{
		Owner:      AccountOwner(acct.ID),
		Instrument: money.Cash,
		Amount:     10_000,
		Direction:  money.Credit,
		Stage:      Forward,
		Kind:       ledger.KindCollectionSettlement,
	})
	if err != nil {
		t.Fatalf("account credit: %v", err)
	}
	if snap.Cash != 10_000 {
		t.Fatalf("expected account cash 10000, got %d", snap.Cash)
	}

	got, err := entries.ListByOwner(ctx, ledger.OwnerAccount, acct.ID, ledger.Filter{})
	if err != nil {
		t.Fatalf("list account entries: %v", err)
	}
	if len(got) != 1 || got[0].OwnerKind != ledger.OwnerAccount {
		t.Fatalf("expected one account-owned entry, got %+v", got)
	}
}

func TestApplyValidation(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	cases := []Op{
		{Owner: UserOwner("u1"), Instrument: money.Cash, Amount: 0, Direction: money.Credit, Stage: Forward},
		{Owner: UserOwner("u1"), Instrument: "gold", Amount: 100, Direction: money.Credit, Stage: Forward},
		{Owner: UserOwner("u1"), Instrument: money.Cash, Amount: 100, Direction: "sideways", Stage: Forward},
		{Owner: UserOwner(""), Instrument: money.Cash, Amount: 100, Direction: money.Credit, Stage: Forward},
	}
	for i, op := range cases {
		if _, err := eng.Apply(ctx, op); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}
