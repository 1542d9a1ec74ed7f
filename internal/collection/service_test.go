package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldpay/fieldpay/internal/account"
	"github.com/fieldpay/fieldpay/internal/engine"
	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/ledger"
	"github.com/fieldpay/fieldpay/internal/money"
	"github.com/fieldpay/fieldpay/internal/wallet"
)

type fixture struct {
	svc      *Service
	store    Store
	wallets  wallet.Store
	accounts account.Store
	entries  ledger.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	wallets := wallet.NewMemoryStore()
	accounts := account.NewMemoryStore()
	entries := ledger.NewMemoryStore()
	store := NewMemoryStore()
	eng := engine.New(wallets, accounts, entries)
	return &fixture{
		svc:      NewService(store, accounts, eng, nil, nil),
		store:    store,
		wallets:  wallets,
		accounts: accounts,
		entries:  entries,
	}
}

func (f *fixture) account(t *testing.T, acct account.Account) account.Account {
	t.Helper()
	created, err := f.accounts.Create(context.Background(), acct)
	require.NoError(t, err)
	return created
}

func TestVerifyCreditsCollectorByDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, account.Account{ModeName: "Office Cash", Instrument: money.Cash, Active: true, ShowInCollection: true})

	c, err := f.svc.Create(ctx, CreateInput{CollectorID: "agent", AccountID: acct.ID, Amount: 5_000, Instrument: money.Cash})
	require.NoError(t, err)

	verified, snap, err := f.svc.Verify(ctx, c.ID, "supervisor")
	require.NoError(t, err)
	require.Equal(t, StatusVerified, verified.Status)
	require.Equal(t, "supervisor", verified.VerifiedBy)

	// No assigned receiver: the collector keeps the money.
	require.EqualValues(t, 5_000, snap.Cash)
	require.EqualValues(t, 5_000, snap.CashIn)

	// The pooled account is credited in its own instrument.
	got, err := f.accounts.Get(ctx, acct.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5_000, got.Balances.Cash)

	// A paired settlement record exists.
	settlement, err := f.store.FindSettlement(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, settlement.Settlement)
	require.Equal(t, c.ID, settlement.PairID)
	require.Equal(t, "agent", settlement.ReceiverID)

	// The visible record never appears in the ledger, only the settlement.
	entries, err := f.entries.ListByRelated(ctx, ledger.Related{Kind: ledger.RelatedCollection, ID: settlement.ID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	visible, err := f.entries.ListByRelated(ctx, ledger.Related{Kind: ledger.RelatedCollection, ID: c.ID})
	require.NoError(t, err)
	require.Empty(t, visible)
}

func TestVerifyAutoPayRoutesToReceiver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, account.Account{
		ModeName:         "Office UPI",
		Instrument:       money.UPI,
		Active:           true,
		ShowInCollection: true,
		AutoPay:          true,
		ReceiverUserID:   "treasurer",
	})

	c, err := f.svc.Create(ctx, CreateInput{CollectorID: "agent", AccountID: acct.ID, ReceiverID: "someone-else", Amount: 2_000, Instrument: money.UPI})
	require.NoError(t, err)

	_, _, err = f.svc.Verify(ctx, c.ID, "supervisor")
	require.NoError(t, err)

	// Auto-pay overrides the assigned receiver.
	treasurer, err := f.wallets.Get(ctx, "treasurer")
	require.NoError(t, err)
	require.EqualValues(t, 2_000, treasurer.Balances.UPI)

	_, err = f.wallets.Get(ctx, "someone-else")
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = f.wallets.Get(ctx, "agent")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestVerifyPassThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// The collector is also the configured auto-pay receiver: money passes
	// through without resting in their wallet.
	acct := f.account(t, account.Account{
		ModeName:         "Office Bank",
		Instrument:       money.Bank,
		Active:           true,
		ShowInCollection: true,
		AutoPay:          true,
		ReceiverUserID:   "agent",
	})

	c, err := f.svc.Create(ctx, CreateInput{CollectorID: "agent", AccountID: acct.ID, Amount: 3_000, Instrument: money.Bank})
	require.NoError(t, err)

	_, snap, err := f.svc.Verify(ctx, c.ID, "supervisor")
	require.NoError(t, err)

	require.EqualValues(t, 0, snap.Bank)
	require.EqualValues(t, 3_000, snap.CashIn)
	require.EqualValues(t, 3_000, snap.CashOut)

	// The flow is still visible in the ledger as a pass-through entry.
	settlement, err := f.store.FindSettlement(ctx, c.ID)
	require.NoError(t, err)
	entries, err := f.entries.ListByRelated(ctx, ledger.Related{Kind: ledger.RelatedCollection, ID: settlement.ID})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var kinds []ledger.Kind
	for _, e := range entries {
		kinds = append(kinds, e.Kind)
	}
	require.Contains(t, kinds, ledger.KindPassThrough)
}

func TestVerifyCashAccountIgnoresAutoPay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Auto-pay only applies to non-cash accounts.
	acct := f.account(t, account.Account{
		ModeName:         "Cash Box",
		Instrument:       money.Cash,
		Active:           true,
		ShowInCollection: true,
		AutoPay:          true,
		ReceiverUserID:   "treasurer",
	})

	c, err := f.svc.Create(ctx, CreateInput{CollectorID: "agent", AccountID: acct.ID, Amount: 1_000, Instrument: money.Cash})
	require.NoError(t, err)

	_, snap, err := f.svc.Verify(ctx, c.ID, "supervisor")
	require.NoError(t, err)
	require.EqualValues(t, 1_000, snap.Cash)

	_, err = f.wallets.Get(ctx, "treasurer")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRejectVerifiedReversesSettlementOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, account.Account{ModeName: "Office Cash", Instrument: money.Cash, Active: true, ShowInCollection: true})

	c, err := f.svc.Create(ctx, CreateInput{CollectorID: "agent", AccountID: acct.ID, Amount: 4_000, Instrument: money.Cash})
	require.NoError(t, err)
	_, _, err = f.svc.Verify(ctx, c.ID, "supervisor")
	require.NoError(t, err)

	rejected, snap, err := f.svc.Reject(ctx, c.ID, "supervisor", "counted wrong")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.EqualValues(t, 0, snap.Cash)

	got, err := f.accounts.Get(ctx, acct.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, got.Balances.Cash)

	settlement, err := f.store.FindSettlement(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, settlement.Status)
}

func TestRejectSettlementLegDirectlyRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, account.Account{ModeName: "Office Cash", Instrument: money.Cash, Active: true, ShowInCollection: true})

	c, err := f.svc.Create(ctx, CreateInput{CollectorID: "agent", AccountID: acct.ID, Amount: 1_000, Instrument: money.Cash})
	require.NoError(t, err)
	_, _, err = f.svc.Verify(ctx, c.ID, "supervisor")
	require.NoError(t, err)

	settlement, err := f.store.FindSettlement(ctx, c.ID)
	require.NoError(t, err)

	_, _, err = f.svc.Reject(ctx, settlement.ID, "supervisor", "")
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestCreateAgainstClosedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inactive := f.account(t, account.Account{ModeName: "Retired", Instrument: money.Cash, ShowInCollection: true})
	_, err := f.svc.Create(ctx, CreateInput{CollectorID: "agent", AccountID: inactive.ID, Amount: 100, Instrument: money.Cash})
	require.ErrorIs(t, err, errs.ErrValidation)

	hidden := f.account(t, account.Account{ModeName: "Expense Only", Instrument: money.Cash, Active: true})
	_, err = f.svc.Create(ctx, CreateInput{CollectorID: "agent", AccountID: hidden.ID, Amount: 100, Instrument: money.Cash})
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestFlagAndResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, account.Account{ModeName: "Office Cash", Instrument: money.Cash, Active: true, ShowInCollection: true})

	c, err := f.svc.Create(ctx, CreateInput{CollectorID: "agent", AccountID: acct.ID, Amount: 600, Instrument: money.Cash})
	require.NoError(t, err)

	flagged, err := f.svc.Flag(ctx, c.ID, "supervisor", "amount looks off")
	require.NoError(t, err)
	require.Equal(t, StatusFlagged, flagged.Status)

	_, err = f.svc.Resubmit(ctx, c.ID, "supervisor", "recounted")
	require.ErrorIs(t, err, errs.ErrNotAuthorized)

	back, err := f.svc.Resubmit(ctx, c.ID, "agent", "recounted, total stands")
	require.NoError(t, err)
	require.Equal(t, StatusPending, back.Status)

	// The cycle ends in a normal verification.
	_, _, err = f.svc.Verify(ctx, c.ID, "supervisor")
	require.NoError(t, err)
}
