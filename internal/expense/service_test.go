package expense

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fieldpay/fieldpay/internal/account"
	"github.com/fieldpay/fieldpay/internal/authz"
	"github.com/fieldpay/fieldpay/internal/engine"
	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/ledger"
	"github.com/fieldpay/fieldpay/internal/money"
	"github.com/fieldpay/fieldpay/internal/wallet"
)

type testFixture struct {
	svc      *Service
	wallets  wallet.Store
	accounts account.Store
	entries  ledger.Store
	source   account.Account
}

func newFixture(t *testing.T, authorizer authz.Authorizer) *testFixture {
	t.Helper()
	ctx := context.Background()

	wallets := wallet.NewMemoryStore()
	accounts := account.NewMemoryStore()
	entries := ledger.NewMemoryStore()
	eng := engine.New(wallets, accounts, entries)

	source, err := accounts.Create(ctx, account.Account{
		ModeName:         "Office Cash",
		Instrument:       money.Cash,
		Active:           true,
		ShowInCollection: true,
	})
	if err != nil {
		t.Fatalf("create disbursement account: %v", err)
	}
	// Fund the disbursement source so approvals can settle.
	if _, err := eng.Apply(ctx, engine.Op{
		Owner:      engine.AccountOwner(source.ID),
		Instrument: money.Cash,
		Amount:     100_000,
		Direction:  money.Credit,
		Stage:      engine.Forward,
		Kind:       ledger.KindFundsAdd,
	}); err != nil {
		t.Fatalf("fund disbursement account: %v", err)
	}

	svc, err := NewService(ctx, NewMemoryStore(), eng, accounts, authorizer, nil, nil)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return &testFixture{svc: svc, wallets: wallets, accounts: accounts, entries: entries, source: source}
}

func TestApproveSettles(t *testing.T) {
	f := newFixture(t, authz.AllowAll{})
	ctx := context.Background()

	e, err := f.svc.Create(ctx, CreateInput{OwnerID: "owner", CreatedBy: "clerk", Amount: 2_500, Instrument: money.UPI, Category: "travel"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	approved, snap, err := f.svc.Approve(ctx, e.ID, "manager")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != StatusApproved || approved.ApprovedBy != "manager" {
		t.Fatalf("unexpected expense state: %+v", approved)
	}
	// Owner is credited in the expense's instrument.
	if snap.UPI != 2_500 || snap.CashIn != 2_500 {
		t.Fatalf("unexpected owner snapshot: %+v", snap)
	}
	// The disbursement account is debited in its own instrument.
	acct, _ := f.accounts.Get(ctx, f.source.ID)
	if acct.Balances.Cash != 97_500 || acct.Balances.CashOut != 2_500 {
		t.Fatalf("unexpected account balances: %+v", acct.Balances)
	}

	got, _ := f.entries.ListByRelated(ctx, ledger.Related{Kind: ledger.RelatedExpense, ID: e.ID})
	if len(got) != 2 {
		t.Fatalf("expected 2 settlement entries, got %d", len(got))
	}
}

func TestApproveTwiceConflicts(t *testing.T) {
	f := newFixture(t, authz.AllowAll{})
	ctx := context.Background()

	e, _ := f.svc.Create(ctx, CreateInput{OwnerID: "owner", Amount: 100, Instrument: money.Cash, Category: "food"})
	if _, _, err := f.svc.Approve(ctx, e.ID, "manager"); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if _, _, err := f.svc.Approve(ctx, e.ID, "manager"); !errors.Is(err, errs.ErrStateConflict) {
		t.Fatalf("expected state conflict on second approve, got %v", err)
	}
}

func TestConcurrentApproveSettlesOnce(t *testing.T) {
	f := newFixture(t, authz.AllowAll{})
	ctx := context.Background()

	e, err := f.svc.Create(ctx, CreateInput{OwnerID: "owner", CreatedBy: "clerk", Amount: 2_000, Instrument: money.Cash, Category: "fuel"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 10
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.svc.Approve(ctx, e.ID, "manager")
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	var wins, conflicts int
	for err := range errCh {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, errs.ErrStateConflict):
			conflicts++
		default:
			t.Fatalf("unexpected approve error: %v", err)
		}
	}
	if wins != 1 || conflicts != workers-1 {
		t.Fatalf("expected exactly one winner, got %d wins / %d conflicts", wins, conflicts)
	}

	// Exactly one settlement pair and one credit on the owner wallet.
	got, _ := f.entries.ListByRelated(ctx, ledger.Related{Kind: ledger.RelatedExpense, ID: e.ID})
	if len(got) != 2 {
		t.Fatalf("expected one settlement pair, got %d entries", len(got))
	}
	owner, _ := f.wallets.Get(ctx, "owner")
	if owner.Balances.Cash != 2_000 || owner.Balances.CashIn != 2_000 {
		t.Fatalf("owner settled more than once: %+v", owner.Balances)
	}
}

func TestSelfApprovalDenied(t *testing.T) {
	f := newFixture(t, authz.DenyAll{})
	ctx := context.Background()

	e, _ := f.svc.Create(ctx, CreateInput{OwnerID: "owner", CreatedBy: "clerk", Amount: 100, Instrument: money.Cash, Category: "food"})

	if _, _, err := f.svc.Approve(ctx, e.ID, "owner"); !errors.Is(err, errs.ErrNotAuthorized) {
		t.Fatalf("owner approving own expense must be refused, got %v", err)
	}
	if _, _, err := f.svc.Approve(ctx, e.ID, "clerk"); !errors.Is(err, errs.ErrNotAuthorized) {
		t.Fatalf("creator approving own filing must be refused, got %v", err)
	}
	// A third party is fine.
	if _, _, err := f.svc.Approve(ctx, e.ID, "manager"); err != nil {
		t.Fatalf("third-party approve: %v", err)
	}
}

func TestRejectAfterApproveReversesExactly(t *testing.T) {
	f := newFixture(t, authz.AllowAll{})
	ctx := context.Background()

	e, _ := f.svc.Create(ctx, CreateInput{OwnerID: "owner", Amount: 3_000, Instrument: money.Bank, Category: "supplies"})
	if _, _, err := f.svc.Approve(ctx, e.ID, "manager"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	rejected, snap, err := f.svc.Reject(ctx, e.ID, "manager", "duplicate claim")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if snap.Bank != 0 || snap.CashIn != 0 {
		t.Fatalf("owner wallet not restored: %+v", snap)
	}

	acct, _ := f.accounts.Get(ctx, f.source.ID)
	if acct.Balances.Cash != 100_000 || acct.Balances.CashOut != 0 {
		t.Fatalf("disbursement account not restored: %+v", acct.Balances)
	}

	got, _ := f.entries.ListByRelated(ctx, ledger.Related{Kind: ledger.RelatedExpense, ID: e.ID})
	if len(got) != 4 {
		t.Fatalf("expected settlement plus reversal entries, got %d", len(got))
	}
}

func TestRejectBlockedWhenWalletSpent(t *testing.T) {
	f := newFixture(t, authz.AllowAll{})
	ctx := context.Background()

	e, _ := f.svc.Create(ctx, CreateInput{OwnerID: "owner", Amount: 2_000, Instrument: money.Cash, Category: "fuel"})
	if _, _, err := f.svc.Approve(ctx, e.ID, "manager"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Owner spends most of the reimbursement before the rejection lands.
	if _, err := f.wallets.ApplyDelta(ctx, "owner", money.Delta{Instrument: money.Cash, Amount: -1_900, CashOut: 1_900}); err != nil {
		t.Fatalf("spend: %v", err)
	}

	if _, _, err := f.svc.Reject(ctx, e.ID, "manager", "fraud"); !errors.Is(err, errs.ErrReversalInconsistency) {
		t.Fatalf("expected reversal inconsistency, got %v", err)
	}

	// The expense stays approved so the books match reality.
	current, _ := f.svc.Get(ctx, e.ID)
	if current.Status != StatusApproved {
		t.Fatalf("expected expense to stay approved, got %s", current.Status)
	}
}

func TestUnapproveReturnsToPending(t *testing.T) {
	f := newFixture(t, authz.AllowAll{})
	ctx := context.Background()

	e, _ := f.svc.Create(ctx, CreateInput{OwnerID: "owner", Amount: 500, Instrument: money.Cash, Category: "food"})
	if _, _, err := f.svc.Approve(ctx, e.ID, "manager"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	back, snap, err := f.svc.Unapprove(ctx, e.ID, "manager")
	if err != nil {
		t.Fatalf("unapprove: %v", err)
	}
	if back.Status != StatusPending || back.ApprovedBy != "" {
		t.Fatalf("expected pending with cleared approver, got %+v", back)
	}
	if snap.Cash != 0 {
		t.Fatalf("owner wallet not restored: %+v", snap)
	}

	// The cycle can repeat.
	if _, _, err := f.svc.Approve(ctx, e.ID, "manager"); err != nil {
		t.Fatalf("re-approve: %v", err)
	}
}

func TestFlagAndResubmit(t *testing.T) {
	f := newFixture(t, authz.AllowAll{})
	ctx := context.Background()

	e, _ := f.svc.Create(ctx, CreateInput{OwnerID: "owner", Amount: 700, Instrument: money.Cash, Category: "misc"})

	if _, err := f.svc.Flag(ctx, e.ID, "manager", ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("flag without reason must fail, got %v", err)
	}

	flagged, err := f.svc.Flag(ctx, e.ID, "manager", "receipt missing")
	if err != nil {
		t.Fatalf("flag: %v", err)
	}
	if flagged.Status != StatusFlagged || flagged.FlagReason != "receipt missing" {
		t.Fatalf("unexpected flagged state: %+v", flagged)
	}

	if _, err := f.svc.Resubmit(ctx, e.ID, "stranger", "receipt attached"); !errors.Is(err, errs.ErrNotAuthorized) {
		t.Fatalf("stranger resubmit must be refused, got %v", err)
	}
	if _, err := f.svc.Resubmit(ctx, e.ID, "owner", ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("resubmit without response must fail, got %v", err)
	}

	back, err := f.svc.Resubmit(ctx, e.ID, "owner", "receipt attached")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if back.Status != StatusPending || back.Response != "receipt attached" {
		t.Fatalf("unexpected resubmitted state: %+v", back)
	}
}

func TestRejectPendingHasNoBalanceEffect(t *testing.T) {
	f := newFixture(t, authz.AllowAll{})
	ctx := context.Background()

	e, _ := f.svc.Create(ctx, CreateInput{OwnerID: "owner", Amount: 900, Instrument: money.Cash, Category: "misc"})
	rejected, snap, err := f.svc.Reject(ctx, e.ID, "manager", "not a business expense")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if snap != (money.Balances{}) {
		t.Fatalf("rejecting a pending expense must not touch balances: %+v", snap)
	}

	got, _ := f.entries.ListByRelated(ctx, ledger.Related{Kind: ledger.RelatedExpense, ID: e.ID})
	if len(got) != 0 {
		t.Fatalf("expected no ledger entries, got %d", len(got))
	}
}

func TestNewServiceRequiresDisbursementSource(t *testing.T) {
	ctx := context.Background()
	wallets := wallet.NewMemoryStore()
	accounts := account.NewMemoryStore()
	eng := engine.New(wallets, accounts, ledger.NewMemoryStore())

	if _, err := NewService(ctx, NewMemoryStore(), eng, accounts, nil, nil, nil); err == nil {
		t.Fatalf("expected construction to fail without a disbursement account")
	}
}
