package collection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fieldpay/fieldpay/internal/account"
	"github.com/fieldpay/fieldpay/internal/audit"
	"github.com/fieldpay/fieldpay/internal/engine"
	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/ledger"
	"github.com/fieldpay/fieldpay/internal/money"
	"github.com/fieldpay/fieldpay/internal/notification"
)

// Service drives the collection verification state machine. Verify writes
// the paired settlement record and applies the balance effects according to
// the account's auto-pay policy; the collector-visible record never touches
// balances.
type Service struct {
	store    Store
	accounts account.Store
	engine   *engine.Engine
	auditor  audit.Recorder
	notifier notification.Notifier
}

// NewService builds the collection service.
func NewService(store Store, accounts account.Store, eng *engine.Engine,
	auditor audit.Recorder, notifier notification.Notifier) *Service {
	return &Service{store: store, accounts: accounts, engine: eng, auditor: auditor, notifier: notifier}
}

// CreateInput captures the data required to submit a collection.
type CreateInput struct {
	CollectorID string
	AccountID   string
	ReceiverID  string
	Amount      int64
	Instrument  money.Instrument
	Notes       string
}

// Create submits a pending collection against a pooled account.
func (s *Service) Create(ctx context.Context, input CreateInput) (Collection, error) {
	if input.CollectorID == "" {
		return Collection{}, &errs.ValidationError{Field: "collectorId", Reason: "required"}
	}
	if input.Amount <= 0 {
		return Collection{}, &errs.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !input.Instrument.Valid() {
		return Collection{}, &errs.ValidationError{Field: "instrument", Reason: "unknown instrument"}
	}
	acct, err := s.accounts.Get(ctx, input.AccountID)
	if err != nil {
		return Collection{}, err
	}
	if !acct.Active || !acct.ShowInCollection {
		return Collection{}, &errs.ValidationError{Field: "accountId", Reason: "account not open for collections"}
	}

	c, err := s.store.Create(ctx, Collection{
		CollectorID: input.CollectorID,
		AccountID:   input.AccountID,
		ReceiverID:  input.ReceiverID,
		Amount:      input.Amount,
		Instrument:  input.Instrument,
		Notes:       input.Notes,
		Status:      StatusPending,
	})
	if err != nil {
		return Collection{}, err
	}
	s.emit(ctx, input.CollectorID, "collection.create", c, "", string(StatusPending), money.Balances{})
	return c, nil
}

// Get returns one collection.
func (s *Service) Get(ctx context.Context, id string) (Collection, error) {
	return s.store.Get(ctx, id)
}

// List returns collections matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Collection, error) {
	return s.store.List(ctx, filter)
}

// Verify approves a pending collection: the visible record turns Verified
// and stays inert, and a system settlement record applies the balance
// effects. Receiver resolution:
//   - auto-pay account with a non-cash instrument and configured receiver:
//     only that receiver is credited; a collector who is also the receiver
//     gets the pass-through treatment,
//   - otherwise the collection's assigned receiver, falling back to the
//     collector.
func (s *Service) Verify(ctx context.Context, id, verifier string) (Collection, money.Balances, error) {
	now := time.Now().UTC()
	c, err := s.store.Transition(ctx, id, []Status{StatusPending}, StatusVerified, func(c *Collection) {
		c.VerifiedBy = verifier
		c.VerifiedAt = now
	})
	if err != nil {
		return Collection{}, money.Balances{}, err
	}

	acct, err := s.accounts.Get(ctx, c.AccountID)
	if err != nil {
		s.revertStatus(ctx, id, StatusVerified, StatusPending)
		return Collection{}, money.Balances{}, err
	}

	receiver := c.ReceiverID
	autoPaid := acct.AutoPay && acct.Instrument != money.Cash && acct.ReceiverUserID != ""
	if autoPaid {
		receiver = acct.ReceiverUserID
	} else if receiver == "" {
		receiver = c.CollectorID
	}

	settlement, err := s.store.Create(ctx, Collection{
		CollectorID: c.CollectorID,
		AccountID:   c.AccountID,
		ReceiverID:  receiver,
		Amount:      c.Amount,
		Instrument:  c.Instrument,
		Notes:       c.Notes,
		Status:      StatusVerified,
		Settlement:  true,
		PairID:      c.ID,
		VerifiedBy:  verifier,
		VerifiedAt:  now,
	})
	if err != nil {
		s.revertStatus(ctx, id, StatusVerified, StatusPending)
		return Collection{}, money.Balances{}, err
	}

	snapshot, err := s.settle(ctx, settlement, acct, verifier, engine.Forward)
	if err != nil {
		s.revertStatus(ctx, id, StatusVerified, StatusPending)
		_, _ = s.store.Transition(ctx, settlement.ID, []Status{StatusVerified}, StatusRejected, nil)
		return Collection{}, money.Balances{}, err
	}

	s.emit(ctx, verifier, "collection.verify", c, string(StatusPending), string(StatusVerified), snapshot)
	return c, snapshot, nil
}

// Reject refuses a collection. Rejecting a verified collection reverses the
// settlement leg only; the visible record just changes status.
func (s *Service) Reject(ctx context.Context, id, actor, response string) (Collection, money.Balances, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Collection{}, money.Balances{}, err
	}
	if current.Settlement {
		return Collection{}, money.Balances{}, &errs.ValidationError{Field: "id", Reason: "settlement legs are reversed through their visible entry"}
	}

	now := time.Now().UTC()
	mutate := func(c *Collection) {
		if response != "" {
			c.Response = response
			c.ResponseAt = now
		}
	}

	if current.Status != StatusVerified {
		c, err := s.store.Transition(ctx, id, []Status{StatusPending, StatusFlagged}, StatusRejected, mutate)
		if err != nil {
			return Collection{}, money.Balances{}, err
		}
		s.emit(ctx, actor, "collection.reject", c, string(current.Status), string(StatusRejected), money.Balances{})
		return c, money.Balances{}, nil
	}

	c, err := s.store.Transition(ctx, id, []Status{StatusVerified}, StatusRejected, mutate)
	if err != nil {
		return Collection{}, money.Balances{}, err
	}

	settlement, err := s.store.FindSettlement(ctx, c.ID)
	if err != nil {
		s.revertStatus(ctx, id, StatusRejected, StatusVerified)
		return Collection{}, money.Balances{}, err
	}
	acct, err := s.accounts.Get(ctx, settlement.AccountID)
	if err != nil {
		s.revertStatus(ctx, id, StatusRejected, StatusVerified)
		return Collection{}, money.Balances{}, err
	}

	snapshot, err := s.settle(ctx, settlement, acct, actor, engine.Reversal)
	if err != nil {
		s.revertStatus(ctx, id, StatusRejected, StatusVerified)
		return Collection{}, money.Balances{}, err
	}
	_, _ = s.store.Transition(ctx, settlement.ID, []Status{StatusVerified}, StatusRejected, nil)

	s.emit(ctx, actor, "collection.reject", c, string(StatusVerified), string(StatusRejected), snapshot)
	return c, snapshot, nil
}

// Flag marks a pending collection for follow-up. No balance effect.
func (s *Service) Flag(ctx context.Context, id, actor, reason string) (Collection, error) {
	if strings.TrimSpace(reason) == "" {
		return Collection{}, &errs.ValidationError{Field: "reason", Reason: "required"}
	}
	now := time.Now().UTC()
	c, err := s.store.Transition(ctx, id, []Status{StatusPending}, StatusFlagged, func(c *Collection) {
		c.FlagReason = reason
		c.FlaggedBy = actor
		c.FlaggedAt = now
	})
	if err != nil {
		return Collection{}, err
	}
	s.emit(ctx, actor, "collection.flag", c, string(StatusPending), string(StatusFlagged), money.Balances{})
	return c, nil
}

// Resubmit returns a flagged collection to pending. The response is mandatory.
func (s *Service) Resubmit(ctx context.Context, id, actor, response string) (Collection, error) {
	if strings.TrimSpace(response) == "" {
		return Collection{}, &errs.ValidationError{Field: "response", Reason: "required"}
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Collection{}, err
	}
	if actor != current.CollectorID {
		return Collection{}, &errs.AuthorizationError{Actor: actor, Action: "resubmit collection"}
	}
	now := time.Now().UTC()
	c, err := s.store.Transition(ctx, id, []Status{StatusFlagged}, StatusPending, func(c *Collection) {
		c.Response = response
		c.ResponseAt = now
	})
	if err != nil {
		return Collection{}, err
	}
	s.emit(ctx, actor, "collection.resubmit", c, string(StatusFlagged), string(StatusPending), money.Balances{})
	return c, nil
}

// settle applies (or reverses) the settlement leg's balance effects: the
// pooled account is credited with the collected amount in its instrument,
// and the resolved receiver's wallet is credited in the collection's
// instrument. A collector receiving their own collection gets the
// pass-through treatment.
func (s *Service) settle(ctx context.Context, settlement Collection, acct account.Account, actor string, stage engine.Stage) (money.Balances, error) {
	kind := ledger.KindCollectionSettlement
	if stage == engine.Reversal {
		kind = ledger.KindCollectionReversal
	}
	related := ledger.Related{Kind: ledger.RelatedCollection, ID: settlement.ID}

	autoPaid := acct.AutoPay && acct.Instrument != money.Cash && acct.ReceiverUserID != ""
	passThrough := autoPaid && settlement.ReceiverID == settlement.CollectorID

	walletOp := engine.Op{
		Owner:       engine.UserOwner(settlement.ReceiverID),
		Instrument:  settlement.Instrument,
		Amount:      settlement.Amount,
		Direction:   money.Credit,
		Stage:       stage,
		Kind:        kind,
		Related:     related,
		PerformedBy: actor,
		Notes:       settlement.Notes,
	}
	if passThrough {
		walletOp.PassThrough = true
		if stage == engine.Forward {
			walletOp.Kind = ledger.KindPassThrough
		}
	}

	snapshot, err := s.engine.Apply(ctx, walletOp)
	if err != nil {
		return money.Balances{}, err
	}

	if _, err := s.engine.Apply(ctx, engine.Op{
		Owner:       engine.AccountOwner(acct.ID),
		Instrument:  acct.Instrument,
		Amount:      settlement.Amount,
		Direction:   money.Credit,
		Stage:       stage,
		Kind:        kind,
		Related:     related,
		PerformedBy: actor,
		Notes:       settlement.Notes,
	}); err != nil {
		// Unwind the wallet leg so the settlement stays all-or-nothing.
		undoStage := engine.Reversal
		if stage == engine.Reversal {
			undoStage = engine.Forward
		}
		undo := walletOp
		undo.Stage = undoStage
		undo.Kind = ledger.KindCollectionReversal
		_, _ = s.engine.Apply(ctx, undo)
		return money.Balances{}, err
	}

	return snapshot, nil
}

func (s *Service) revertStatus(ctx context.Context, id string, from, to Status) {
	_, _ = s.store.Transition(ctx, id, []Status{from}, to, nil)
}

func (s *Service) emit(ctx context.Context, actor, action string, c Collection, before, after string, balances money.Balances) {
	if s.auditor != nil {
		_ = s.auditor.Record(ctx, audit.Event{
			Actor: actor, Action: action,
			EntityKind: "collection", EntityID: c.ID,
			Before: before, After: after,
		})
	}
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindCollection,
			EntityID:    c.ID,
			Destination: c.CollectorID,
			Body:        fmt.Sprintf("collection %s %s", c.ID, after),
			Balances:    balances,
		})
	}
}
