package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/money"
)

func TestMemoryStoreCreateRejectsDuplicateName(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Create(ctx, Account{ModeName: "Office Cash", Instrument: money.Cash}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, Account{ModeName: "Office Cash", Instrument: money.UPI}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for duplicate mode name, got %v", err)
	}
}

func TestMemoryStoreFirstPicksEarliestEligible(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Oldest account is inactive, next oldest hidden from collections; the
	// third is the disbursement source.
	if _, err := store.Create(ctx, Account{ModeName: "Old Safe", Instrument: money.Cash, ShowInCollection: true, CreatedAt: base}); err != nil {
		t.Fatalf("create old safe: %v", err)
	}
	if _, err := store.Create(ctx, Account{ModeName: "Ledger Only", Instrument: money.Bank, Active: true, CreatedAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("create ledger only: %v", err)
	}
	want, err := store.Create(ctx, Account{ModeName: "Office Cash", Instrument: money.Cash, Active: true, ShowInCollection: true, CreatedAt: base.Add(2 * time.Hour)})
	if err != nil {
		t.Fatalf("create office cash: %v", err)
	}
	if _, err := store.Create(ctx, Account{ModeName: "Office UPI", Instrument: money.UPI, Active: true, ShowInCollection: true, CreatedAt: base.Add(3 * time.Hour)}); err != nil {
		t.Fatalf("create office upi: %v", err)
	}

	got, err := store.First(ctx)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if got.ID != want.ID {
		t.Fatalf("expected %s as disbursement source, got %s", want.ModeName, got.ModeName)
	}
}

func TestMemoryStoreFirstEmpty(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.First(context.Background()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreSetActive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	acct, err := store.Create(ctx, Account{ModeName: "Office Cash", Instrument: money.Cash, Active: true, ShowInCollection: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := store.SetActive(ctx, acct.ID, false)
	if err != nil {
		t.Fatalf("set active: %v", err)
	}
	if updated.Active {
		t.Fatalf("expected account to be inactive")
	}

	if _, err := store.First(ctx); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("inactive account must not be a disbursement source, got %v", err)
	}
}

func TestMemoryStoreApplyDeltaNonNegative(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	acct, err := store.Create(ctx, Account{ModeName: "Office Bank", Instrument: money.Bank, Active: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.ApplyDelta(ctx, acct.ID, money.Delta{Instrument: money.Bank, Amount: -1, CashOut: 1}); !errors.Is(err, errs.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	updated, err := store.ApplyDelta(ctx, acct.ID, money.Delta{Instrument: money.Bank, Amount: 2_500, CashIn: 2_500})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if updated.Balances.Bank != 2_500 || updated.Balances.CashIn != 2_500 {
		t.Fatalf("unexpected balances: %+v", updated.Balances)
	}
}
