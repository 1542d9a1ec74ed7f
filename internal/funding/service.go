// Package funding exposes the direct wallet operations: adding money to and
// withdrawing money from a user's wallet outside the approval flows.
package funding

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldpay/fieldpay/internal/audit"
	"github.com/fieldpay/fieldpay/internal/engine"
	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/ledger"
	"github.com/fieldpay/fieldpay/internal/money"
	"github.com/fieldpay/fieldpay/internal/notification"
	"github.com/fieldpay/fieldpay/internal/wallet"
)

// Service coordinates fund additions and withdrawals through the balance
// engine.
type Service struct {
	engine   *engine.Engine
	wallets  wallet.Store
	auditor  audit.Recorder
	notifier notification.Notifier
}

// NewService builds a funding service.
func NewService(eng *engine.Engine, wallets wallet.Store, auditor audit.Recorder, notifier notification.Notifier) *Service {
	return &Service{engine: eng, wallets: wallets, auditor: auditor, notifier: notifier}
}

// Input captures a fund add or withdraw request.
type Input struct {
	UserID      string
	Instrument  money.Instrument
	Amount      int64
	PerformedBy string
	Notes       string
}

// Result reports the outcome of a funding operation.
type Result struct {
	UserID      string
	Balances    money.Balances
	CompletedAt time.Time
}

// AddFunds credits the user's wallet and bumps the lifetime cash-in counter.
func (s *Service) AddFunds(ctx context.Context, input Input) (Result, error) {
	return s.apply(ctx, input, money.Credit, ledger.KindFundsAdd, "funds.add")
}

// WithdrawFunds debits the user's wallet and bumps the lifetime cash-out
// counter. A withdrawal that would go negative fails with
// ErrInsufficientFunds.
func (s *Service) WithdrawFunds(ctx context.Context, input Input) (Result, error) {
	return s.apply(ctx, input, money.Debit, ledger.KindFundsWithdraw, "funds.withdraw")
}

// Balance returns the user's current wallet, creating it lazily.
func (s *Service) Balance(ctx context.Context, userID string) (wallet.Wallet, error) {
	return s.wallets.GetOrCreate(ctx, userID)
}

func (s *Service) apply(ctx context.Context, input Input, direction money.Direction, kind ledger.Kind, action string) (Result, error) {
	if input.UserID == "" {
		return Result{}, &errs.ValidationError{Field: "userId", Reason: "required"}
	}
	if input.PerformedBy == "" {
		input.PerformedBy = input.UserID
	}

	snapshot, err := s.engine.Apply(ctx, engine.Op{
		Owner:       engine.UserOwner(input.UserID),
		Instrument:  input.Instrument,
		Amount:      input.Amount,
		Direction:   direction,
		Stage:       engine.Forward,
		Kind:        kind,
		PerformedBy: input.PerformedBy,
		Notes:       input.Notes,
	})
	if err != nil {
		return Result{}, err
	}

	if s.auditor != nil {
		_ = s.auditor.Record(ctx, audit.Event{
			Actor: input.PerformedBy, Action: action,
			EntityKind: "wallet", EntityID: input.UserID,
		})
	}
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindFunds,
			EntityID:    input.UserID,
			Destination: input.UserID,
			Body:        fmt.Sprintf("%s of %d %s", action, input.Amount, input.Instrument),
			Balances:    snapshot,
		})
	}

	return Result{UserID: input.UserID, Balances: snapshot, CompletedAt: time.Now().UTC()}, nil
}
