package transfer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fieldpay/fieldpay/internal/audit"
	"github.com/fieldpay/fieldpay/internal/engine"
	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/ledger"
	"github.com/fieldpay/fieldpay/internal/money"
	"github.com/fieldpay/fieldpay/internal/notification"
)

// Service drives the transfer state machine. Completing a transfer debits
// the sender and credits the receiver in the same instrument; rejecting a
// completed transfer reverses both legs exactly.
type Service struct {
	store    Store
	engine   *engine.Engine
	auditor  audit.Recorder
	notifier notification.Notifier
}

// NewService builds the transfer service.
func NewService(store Store, eng *engine.Engine, auditor audit.Recorder, notifier notification.Notifier) *Service {
	return &Service{store: store, engine: eng, auditor: auditor, notifier: notifier}
}

// CreateInput captures the data required to request a transfer.
type CreateInput struct {
	SenderID    string
	ReceiverID  string
	InitiatedBy string
	Amount      int64
	Instrument  money.Instrument
	Notes       string

	AutoPay         bool
	SystemGenerated bool
}

// Create records a pending transfer request.
func (s *Service) Create(ctx context.Context, input CreateInput) (Transfer, error) {
	if input.SenderID == "" {
		return Transfer{}, &errs.ValidationError{Field: "senderId", Reason: "required"}
	}
	if input.ReceiverID == "" {
		return Transfer{}, &errs.ValidationError{Field: "receiverId", Reason: "required"}
	}
	if input.SenderID == input.ReceiverID {
		return Transfer{}, &errs.ValidationError{Field: "receiverId", Reason: "sender and receiver must differ"}
	}
	if input.Amount <= 0 {
		return Transfer{}, &errs.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !input.Instrument.Valid() {
		return Transfer{}, &errs.ValidationError{Field: "instrument", Reason: "unknown instrument"}
	}
	if input.InitiatedBy == "" {
		input.InitiatedBy = input.SenderID
	}

	t, err := s.store.Create(ctx, Transfer{
		SenderID:        input.SenderID,
		ReceiverID:      input.ReceiverID,
		InitiatedBy:     input.InitiatedBy,
		Amount:          input.Amount,
		Instrument:      input.Instrument,
		Notes:           input.Notes,
		Status:          StatusPending,
		AutoPay:         input.AutoPay,
		SystemGenerated: input.SystemGenerated,
	})
	if err != nil {
		return Transfer{}, err
	}
	s.emit(ctx, input.InitiatedBy, "transfer.create", t, "", string(StatusPending), money.Balances{})
	return t, nil
}

// Get returns one transfer.
func (s *Service) Get(ctx context.Context, id string) (Transfer, error) {
	return s.store.Get(ctx, id)
}

// List returns transfers matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Transfer, error) {
	return s.store.List(ctx, filter)
}

// Approve completes a pending transfer and moves the money.
func (s *Service) Approve(ctx context.Context, id, approver string) (Transfer, money.Balances, error) {
	now := time.Now().UTC()
	t, err := s.store.Transition(ctx, id, []Status{StatusPending}, StatusCompleted, func(t *Transfer) {
		t.ApprovedBy = approver
		t.ApprovedAt = now
	})
	if err != nil {
		return Transfer{}, money.Balances{}, err
	}

	related := ledger.Related{Kind: ledger.RelatedTransfer, ID: t.ID}
	if _, err := s.engine.Apply(ctx, engine.Op{
		Owner:       engine.UserOwner(t.SenderID),
		Instrument:  t.Instrument,
		Amount:      t.Amount,
		Direction:   money.Debit,
		Stage:       engine.Forward,
		Kind:        ledger.KindTransferSettlement,
		Related:     related,
		PerformedBy: approver,
		Notes:       t.Notes,
	}); err != nil {
		s.revertStatus(ctx, id, StatusCompleted, StatusPending)
		return Transfer{}, money.Balances{}, err
	}

	snapshot, err := s.engine.Apply(ctx, engine.Op{
		Owner:       engine.UserOwner(t.ReceiverID),
		Instrument:  t.Instrument,
		Amount:      t.Amount,
		Direction:   money.Credit,
		Stage:       engine.Forward,
		Kind:        ledger.KindTransferSettlement,
		Related:     related,
		PerformedBy: approver,
		Notes:       t.Notes,
	})
	if err != nil {
		_, _ = s.engine.Apply(ctx, engine.Op{
			Owner:       engine.UserOwner(t.SenderID),
			Instrument:  t.Instrument,
			Amount:      t.Amount,
			Direction:   money.Debit,
			Stage:       engine.Reversal,
			Kind:        ledger.KindTransferReversal,
			Related:     related,
			PerformedBy: approver,
		})
		s.revertStatus(ctx, id, StatusCompleted, StatusPending)
		return Transfer{}, money.Balances{}, err
	}

	s.emit(ctx, approver, "transfer.approve", t, string(StatusPending), string(StatusCompleted), snapshot)
	return t, snapshot, nil
}

// Reject refuses a transfer. A completed transfer is reversed exactly: the
// receiver's wallet must be able to give the money back, otherwise the
// operation fails with ErrReversalInconsistency and the transfer stays
// completed.
func (s *Service) Reject(ctx context.Context, id, actor, response string) (Transfer, money.Balances, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Transfer{}, money.Balances{}, err
	}

	now := time.Now().UTC()
	mutate := func(t *Transfer) {
		if response != "" {
			t.Response = response
			t.ResponseAt = now
		}
	}

	if current.Status != StatusCompleted {
		t, err := s.store.Transition(ctx, id, []Status{StatusPending, StatusFlagged}, StatusRejected, mutate)
		if err != nil {
			return Transfer{}, money.Balances{}, err
		}
		s.emit(ctx, actor, "transfer.reject", t, string(current.Status), string(StatusRejected), money.Balances{})
		return t, money.Balances{}, nil
	}

	t, err := s.store.Transition(ctx, id, []Status{StatusCompleted}, StatusRejected, mutate)
	if err != nil {
		return Transfer{}, money.Balances{}, err
	}

	related := ledger.Related{Kind: ledger.RelatedTransfer, ID: t.ID}
	if _, err := s.engine.Apply(ctx, engine.Op{
		Owner:       engine.UserOwner(t.ReceiverID),
		Instrument:  t.Instrument,
		Amount:      t.Amount,
		Direction:   money.Credit,
		Stage:       engine.Reversal,
		Kind:        ledger.KindTransferReversal,
		Related:     related,
		PerformedBy: actor,
	}); err != nil {
		s.revertStatus(ctx, id, StatusRejected, StatusCompleted)
		return Transfer{}, money.Balances{}, err
	}
	snapshot, err := s.engine.Apply(ctx, engine.Op{
		Owner:       engine.UserOwner(t.SenderID),
		Instrument:  t.Instrument,
		Amount:      t.Amount,
		Direction:   money.Debit,
		Stage:       engine.Reversal,
		Kind:        ledger.KindTransferReversal,
		Related:     related,
		PerformedBy: actor,
	})
	if err != nil {
		// The receiver already gave the money back; return it so both
		// wallets read as before and the transfer stays completed.
		_, _ = s.engine.Apply(ctx, engine.Op{
			Owner:       engine.UserOwner(t.ReceiverID),
			Instrument:  t.Instrument,
			Amount:      t.Amount,
			Direction:   money.Credit,
			Stage:       engine.Forward,
			Kind:        ledger.KindTransferSettlement,
			Related:     related,
			PerformedBy: actor,
		})
		s.revertStatus(ctx, id, StatusRejected, StatusCompleted)
		return Transfer{}, money.Balances{}, err
	}

	s.emit(ctx, actor, "transfer.reject", t, string(StatusCompleted), string(StatusRejected), snapshot)
	return t, snapshot, nil
}

// Cancel withdraws a pending transfer. Only the initiator may cancel.
func (s *Service) Cancel(ctx context.Context, id, actor string) (Transfer, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Transfer{}, err
	}
	if actor != current.InitiatedBy && actor != current.SenderID {
		return Transfer{}, &errs.AuthorizationError{Actor: actor, Action: "cancel transfer"}
	}
	t, err := s.store.Transition(ctx, id, []Status{StatusPending}, StatusCancelled, nil)
	if err != nil {
		return Transfer{}, err
	}
	s.emit(ctx, actor, "transfer.cancel", t, string(StatusPending), string(StatusCancelled), money.Balances{})
	return t, nil
}

// Flag marks a pending transfer for follow-up. No balance effect.
func (s *Service) Flag(ctx context.Context, id, actor, reason string) (Transfer, error) {
	if strings.TrimSpace(reason) == "" {
		return Transfer{}, &errs.ValidationError{Field: "reason", Reason: "required"}
	}
	now := time.Now().UTC()
	t, err := s.store.Transition(ctx, id, []Status{StatusPending}, StatusFlagged, func(t *Transfer) {
		t.FlagReason = reason
		t.FlaggedBy = actor
		t.FlaggedAt = now
	})
	if err != nil {
		return Transfer{}, err
	}
	s.emit(ctx, actor, "transfer.flag", t, string(StatusPending), string(StatusFlagged), money.Balances{})
	return t, nil
}

// Resubmit returns a flagged transfer to pending. The response is mandatory.
func (s *Service) Resubmit(ctx context.Context, id, actor, response string) (Transfer, error) {
	if strings.TrimSpace(response) == "" {
		return Transfer{}, &errs.ValidationError{Field: "response", Reason: "required"}
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Transfer{}, err
	}
	if actor != current.InitiatedBy && actor != current.SenderID {
		return Transfer{}, &errs.AuthorizationError{Actor: actor, Action: "resubmit transfer"}
	}
	now := time.Now().UTC()
	t, err := s.store.Transition(ctx, id, []Status{StatusFlagged}, StatusPending, func(t *Transfer) {
		t.Response = response
		t.ResponseAt = now
	})
	if err != nil {
		return Transfer{}, err
	}
	s.emit(ctx, actor, "transfer.resubmit", t, string(StatusFlagged), string(StatusPending), money.Balances{})
	return t, nil
}

func (s *Service) revertStatus(ctx context.Context, id string, from, to Status) {
	_, _ = s.store.Transition(ctx, id, []Status{from}, to, nil)
}

func (s *Service) emit(ctx context.Context, actor, action string, t Transfer, before, after string, balances money.Balances) {
	if s.auditor != nil {
		_ = s.auditor.Record(ctx, audit.Event{
			Actor: actor, Action: action,
			EntityKind: "transfer", EntityID: t.ID,
			Before: before, After: after,
		})
	}
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransfer,
			EntityID:    t.ID,
			Destination: t.ReceiverID,
			Body:        fmt.Sprintf("transfer %s %s", t.ID, after),
			Balances:    balances,
		})
	}
}
