package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched by callers with errors.Is.
var (
	// ErrValidation indicates malformed input rejected before any mutation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStateConflict indicates an illegal transition from the entity's
	// current status, including duplicate approvals racing each other.
	ErrStateConflict = errors.New("state conflict")

	// ErrNotAuthorized indicates the actor may not perform the operation,
	// e.g. approving their own expense.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInsufficientFunds indicates a debit would push a balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrReversalInconsistency indicates a reversal cannot be applied
	// without violating the non-negative balance invariant.
	ErrReversalInconsistency = errors.New("reversal inconsistency")
)

// ValidationError reports a specific malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StateConflictError carries the transition that was refused.
type StateConflictError struct {
	Kind string
	ID   string
	From string
	To   string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s %s: cannot move from %s to %s", e.Kind, e.ID, e.From, e.To)
}

func (e *StateConflictError) Unwrap() error { return ErrStateConflict }

// AuthorizationError names the refused actor and action.
type AuthorizationError struct {
	Actor  string
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s may not %s", e.Actor, e.Action)
}

func (e *AuthorizationError) Unwrap() error { return ErrNotAuthorized }

// IsClientError reports whether the error is due to invalid client input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrStateConflict) ||
		errors.Is(err, ErrNotAuthorized) ||
		errors.Is(err, ErrInsufficientFunds)
}
