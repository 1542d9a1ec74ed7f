// Package authz declares the authorization contract consumed by the
// settlement services. Role evaluation lives outside the core; the services
// only re-check the self-approval rule through CanPerform.
package authz

import (
	"context"

	"github.com/fieldpay/fieldpay/internal/errs"
)

// Action names an operation gated by authorization.
type Action string

const (
	ActionApproveOwn Action = "approve_own"
)

// Resource identifies the entity an action targets.
type Resource struct {
	Kind string
	ID   string
}

// Authorizer answers whether an actor may perform an action. The API gate is
// assumed to have already run; this is the core's last-line check.
type Authorizer interface {
	CanPerform(ctx context.Context, actor string, action Action, resource Resource) error
}

// AllowAll grants every request. Used in dev mode and as the default when no
// role engine is wired.
type AllowAll struct{}

// CanPerform always allows.
func (AllowAll) CanPerform(context.Context, string, Action, Resource) error { return nil }

// DenyAll refuses every request. Useful in tests exercising the
// self-approval rule.
type DenyAll struct{}

// CanPerform always refuses.
func (DenyAll) CanPerform(_ context.Context, actor string, action Action, _ Resource) error {
	return &errs.AuthorizationError{Actor: actor, Action: string(action)}
}
