package expense

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fieldpay/fieldpay/internal/account"
	"github.com/fieldpay/fieldpay/internal/audit"
	"github.com/fieldpay/fieldpay/internal/authz"
	"github.com/fieldpay/fieldpay/internal/engine"
	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/ledger"
	"github.com/fieldpay/fieldpay/internal/money"
	"github.com/fieldpay/fieldpay/internal/notification"
)

// Service drives the expense approval state machine. Approve settles the
// claim: the disbursement account is debited in its own instrument and the
// owner's wallet credited in the expense's instrument. Reject and Unapprove
// from Approved mirror the settlement exactly.
type Service struct {
	store      Store
	engine     *engine.Engine
	authorizer authz.Authorizer
	auditor    audit.Recorder
	notifier   notification.Notifier

	// disbursement is resolved once at construction: the first active
	// collection-visible account, by creation order.
	disbursement account.Account
}

// NewService builds the expense service, resolving the disbursement source
// up front.
func NewService(ctx context.Context, store Store, eng *engine.Engine, accounts account.Store,
	authorizer authz.Authorizer, auditor audit.Recorder, notifier notification.Notifier) (*Service, error) {
	if authorizer == nil {
		authorizer = authz.AllowAll{}
	}
	source, err := accounts.First(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve disbursement account: %w", err)
	}
	return &Service{
		store:        store,
		engine:       eng,
		authorizer:   authorizer,
		auditor:      auditor,
		notifier:     notifier,
		disbursement: source,
	}, nil
}

// CreateInput captures the data required to file an expense.
type CreateInput struct {
	OwnerID    string
	CreatedBy  string
	Amount     int64
	Instrument money.Instrument
	Category   string
	Notes      string
}

// Create files a new pending expense.
func (s *Service) Create(ctx context.Context, input CreateInput) (Expense, error) {
	if input.OwnerID == "" {
		return Expense{}, &errs.ValidationError{Field: "ownerId", Reason: "required"}
	}
	if input.Amount <= 0 {
		return Expense{}, &errs.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !input.Instrument.Valid() {
		return Expense{}, &errs.ValidationError{Field: "instrument", Reason: "unknown instrument"}
	}
	if strings.TrimSpace(input.Category) == "" {
		return Expense{}, &errs.ValidationError{Field: "category", Reason: "required"}
	}
	if input.CreatedBy == "" {
		input.CreatedBy = input.OwnerID
	}

	e, err := s.store.Create(ctx, Expense{
		OwnerID:    input.OwnerID,
		CreatedBy:  input.CreatedBy,
		Amount:     input.Amount,
		Instrument: input.Instrument,
		Category:   input.Category,
		Notes:      input.Notes,
		Status:     StatusPending,
	})
	if err != nil {
		return Expense{}, err
	}
	s.emit(ctx, input.CreatedBy, "expense.create", e, "", string(StatusPending), money.Balances{})
	return e, nil
}

// Get returns one expense.
func (s *Service) Get(ctx context.Context, id string) (Expense, error) {
	return s.store.Get(ctx, id)
}

// List returns expenses matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Expense, error) {
	return s.store.List(ctx, filter)
}

// Approve settles a pending expense. The owner or creator may not approve
// their own claim unless the authorizer grants the elevated action.
func (s *Service) Approve(ctx context.Context, id, approver string) (Expense, money.Balances, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return Expense{}, money.Balances{}, err
	}
	if approver == e.OwnerID || approver == e.CreatedBy {
		if err := s.authorizer.CanPerform(ctx, approver, authz.ActionApproveOwn, authz.Resource{Kind: "expense", ID: id}); err != nil {
			return Expense{}, money.Balances{}, &errs.AuthorizationError{Actor: approver, Action: "approve own expense"}
		}
	}

	now := time.Now().UTC()
	e, err = s.store.Transition(ctx, id, []Status{StatusPending}, StatusApproved, func(e *Expense) {
		e.ApprovedBy = approver
		e.ApprovedAt = now
	})
	if err != nil {
		return Expense{}, money.Balances{}, err
	}

	related := ledger.Related{Kind: ledger.RelatedExpense, ID: e.ID}
	if _, err := s.engine.Apply(ctx, engine.Op{
		Owner:       engine.AccountOwner(s.disbursement.ID),
		Instrument:  s.disbursement.Instrument,
		Amount:      e.Amount,
		Direction:   money.Debit,
		Stage:       engine.Forward,
		Kind:        ledger.KindExpenseSettlement,
		Related:     related,
		PerformedBy: approver,
		Notes:       e.Category,
	}); err != nil {
		s.revertStatus(ctx, id, StatusApproved, StatusPending)
		return Expense{}, money.Balances{}, err
	}

	snapshot, err := s.engine.Apply(ctx, engine.Op{
		Owner:       engine.UserOwner(e.OwnerID),
		Instrument:  e.Instrument,
		Amount:      e.Amount,
		Direction:   money.Credit,
		Stage:       engine.Forward,
		Kind:        ledger.KindExpenseSettlement,
		Related:     related,
		PerformedBy: approver,
		Notes:       e.Category,
	})
	if err != nil {
		// Put the disbursed amount back before surfacing the failure.
		_, _ = s.engine.Apply(ctx, engine.Op{
			Owner:       engine.AccountOwner(s.disbursement.ID),
			Instrument:  s.disbursement.Instrument,
			Amount:      e.Amount,
			Direction:   money.Debit,
			Stage:       engine.Reversal,
			Kind:        ledger.KindExpenseReversal,
			Related:     related,
			PerformedBy: approver,
		})
		s.revertStatus(ctx, id, StatusApproved, StatusPending)
		return Expense{}, money.Balances{}, err
	}

	s.emit(ctx, approver, "expense.approve", e, string(StatusPending), string(StatusApproved), snapshot)
	return e, snapshot, nil
}

// Reject refuses an expense. Rejecting an approved expense reverses the
// settlement exactly; a wallet that cannot absorb the reversal fails with
// ErrReversalInconsistency and the expense stays approved.
func (s *Service) Reject(ctx context.Context, id, actor, response string) (Expense, money.Balances, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Expense{}, money.Balances{}, err
	}

	now := time.Now().UTC()
	mutate := func(e *Expense) {
		if response != "" {
			e.Response = response
			e.ResponseAt = now
		}
	}

	if current.Status != StatusApproved {
		e, err := s.store.Transition(ctx, id, []Status{StatusPending, StatusFlagged}, StatusRejected, mutate)
		if err != nil {
			return Expense{}, money.Balances{}, err
		}
		s.emit(ctx, actor, "expense.reject", e, string(current.Status), string(StatusRejected), money.Balances{})
		return e, money.Balances{}, nil
	}

	e, err := s.store.Transition(ctx, id, []Status{StatusApproved}, StatusRejected, mutate)
	if err != nil {
		return Expense{}, money.Balances{}, err
	}
	snapshot, err := s.reverseSettlement(ctx, e, actor)
	if err != nil {
		s.revertStatus(ctx, id, StatusRejected, StatusApproved)
		return Expense{}, money.Balances{}, err
	}
	s.emit(ctx, actor, "expense.reject", e, string(StatusApproved), string(StatusRejected), snapshot)
	return e, snapshot, nil
}

// Unapprove returns an approved expense to pending, reversing the
// settlement exactly.
func (s *Service) Unapprove(ctx context.Context, id, actor string) (Expense, money.Balances, error) {
	e, err := s.store.Transition(ctx, id, []Status{StatusApproved}, StatusPending, func(e *Expense) {
		e.ApprovedBy = ""
		e.ApprovedAt = time.Time{}
	})
	if err != nil {
		return Expense{}, money.Balances{}, err
	}
	snapshot, err := s.reverseSettlement(ctx, e, actor)
	if err != nil {
		s.revertStatus(ctx, id, StatusPending, StatusApproved)
		return Expense{}, money.Balances{}, err
	}
	s.emit(ctx, actor, "expense.unapprove", e, string(StatusApproved), string(StatusPending), snapshot)
	return e, snapshot, nil
}

// Flag marks a pending expense for follow-up. No balance effect.
func (s *Service) Flag(ctx context.Context, id, actor, reason string) (Expense, error) {
	if strings.TrimSpace(reason) == "" {
		return Expense{}, &errs.ValidationError{Field: "reason", Reason: "required"}
	}
	now := time.Now().UTC()
	e, err := s.store.Transition(ctx, id, []Status{StatusPending}, StatusFlagged, func(e *Expense) {
		e.FlagReason = reason
		e.FlaggedBy = actor
		e.FlaggedAt = now
	})
	if err != nil {
		return Expense{}, err
	}
	s.emit(ctx, actor, "expense.flag", e, string(StatusPending), string(StatusFlagged), money.Balances{})
	return e, nil
}

// Resubmit returns a flagged expense to pending. The response is mandatory.
func (s *Service) Resubmit(ctx context.Context, id, actor, response string) (Expense, error) {
	if strings.TrimSpace(response) == "" {
		return Expense{}, &errs.ValidationError{Field: "response", Reason: "required"}
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if actor != current.OwnerID && actor != current.CreatedBy {
		return Expense{}, &errs.AuthorizationError{Actor: actor, Action: "resubmit expense"}
	}
	now := time.Now().UTC()
	e, err := s.store.Transition(ctx, id, []Status{StatusFlagged}, StatusPending, func(e *Expense) {
		e.Response = response
		e.ResponseAt = now
	})
	if err != nil {
		return Expense{}, err
	}
	s.emit(ctx, actor, "expense.resubmit", e, string(StatusFlagged), string(StatusPending), money.Balances{})
	return e, nil
}

// DisbursementSource exposes the resolved funding account.
func (s *Service) DisbursementSource() account.Account {
	return s.disbursement
}

// reverseSettlement mirrors the approve settlement. The wallet debit is the
// leg that can fail, so it runs first.
func (s *Service) reverseSettlement(ctx context.Context, e Expense, actor string) (money.Balances, error) {
	related := ledger.Related{Kind: ledger.RelatedExpense, ID: e.ID}
	snapshot, err := s.engine.Apply(ctx, engine.Op{
		Owner:       engine.UserOwner(e.OwnerID),
		Instrument:  e.Instrument,
		Amount:      e.Amount,
		Direction:   money.Credit,
		Stage:       engine.Reversal,
		Kind:        ledger.KindExpenseReversal,
		Related:     related,
		PerformedBy: actor,
	})
	if err != nil {
		return money.Balances{}, err
	}
	if _, err := s.engine.Apply(ctx, engine.Op{
		Owner:       engine.AccountOwner(s.disbursement.ID),
		Instrument:  s.disbursement.Instrument,
		Amount:      e.Amount,
		Direction:   money.Debit,
		Stage:       engine.Reversal,
		Kind:        ledger.KindExpenseReversal,
		Related:     related,
		PerformedBy: actor,
	}); err != nil {
		return money.Balances{}, err
	}
	return snapshot, nil
}

func (s *Service) revertStatus(ctx context.Context, id string, from, to Status) {
	// Best effort: the settlement already failed, keep the status honest.
	_, _ = s.store.Transition(ctx, id, []Status{from}, to, nil)
}

func (s *Service) emit(ctx context.Context, actor, action string, e Expense, before, after string, balances money.Balances) {
	if s.auditor != nil {
		_ = s.auditor.Record(ctx, audit.Event{
			Actor: actor, Action: action,
			EntityKind: "expense", EntityID: e.ID,
			Before: before, After: after,
		})
	}
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindExpense,
			EntityID:    e.ID,
			Destination: e.OwnerID,
			Body:        fmt.Sprintf("expense %s %s", e.ID, after),
			Balances:    balances,
		})
	}
}
