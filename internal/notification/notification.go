package notification

import (
	"context"
	"log/slog"

	"github.com/fieldpay/fieldpay/internal/money"
)

const (
	// KindExpense indicates an expense transition event.
	KindExpense = "expense"
	// KindTransfer indicates a transfer transition event.
	KindTransfer = "transfer"
	// KindCollection indicates a collection transition event.
	KindCollection = "collection"
	// KindFunds indicates a fund add/withdraw event.
	KindFunds = "funds"
)

// Message describes a notification payload emitted after a successful
// transition.
type Message struct {
	Kind        string
	EntityID    string
	Destination string
	Body        string
	Balances    money.Balances
}

// Notifier delivers notifications to downstream systems. Delivery is
// fire-and-forget; failures never roll back a financial mutation.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"entity_id", message.EntityID,
		"destination", message.Destination,
		"body", message.Body,
		"balance", message.Balances.Total(),
	)
	return nil
}
