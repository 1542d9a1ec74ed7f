// Package audit declares the audit trail contract. Persistence is a
// collaborator concern; the core emits events fire-and-forget after every
// transition and never rolls back a completed mutation on audit failure.
package audit

import (
	"context"
	"log/slog"
)

// Event records one state transition for the audit trail.
type Event struct {
	Actor      string
	Action     string
	EntityKind string
	EntityID   string
	Before     string
	After      string
}

// Recorder receives audit events.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// LoggerRecorder is a stub implementation that writes events to the logger.
type LoggerRecorder struct {
	logger *slog.Logger
}

// NewLoggerRecorder constructs a logging audit recorder.
func NewLoggerRecorder(logger *slog.Logger) *LoggerRecorder {
	return &LoggerRecorder{logger: logger}
}

// Record writes the event to the structured logger.
func (r *LoggerRecorder) Record(_ context.Context, event Event) error {
	if r == nil || r.logger == nil {
		return nil
	}
	r.logger.Info("audit",
		"actor", event.Actor,
		"action", event.Action,
		"entity_kind", event.EntityKind,
		"entity_id", event.EntityID,
		"before", event.Before,
		"after", event.After,
	)
	return nil
}
