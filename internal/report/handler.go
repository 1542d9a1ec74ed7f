package report

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldpay/fieldpay/internal/httpx"
)

// Handler exposes the reporting HTTP endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler builds a report HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// Wallet serves user-scoped summaries. Scope comes from query parameters:
// ?scope=self&user_id=u1, ?scope=users&user_ids=u1,u2, ?scope=role&role=agent,
// or ?scope=all.
func (h *Handler) Wallet(c *fiber.Ctx) error {
	scope := Scope{Kind: ScopeKind(c.Query("scope", string(ScopeSelf)))}
	switch scope.Kind {
	case ScopeSelf:
		scope.UserID = c.Query("user_id", httpx.Actor(c))
	case ScopeUsers:
		if raw := c.Query("user_ids"); raw != "" {
			scope.UserIDs = strings.Split(raw, ",")
		}
	case ScopeRole:
		scope.Role = c.Query("role")
	}

	filter, err := parseFilter(c)
	if err != nil {
		return err
	}
	summary, err := h.engine.Wallet(c.UserContext(), scope, filter)
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(summary)
}

// Account serves the ledger-backed summary for one pooled account.
func (h *Handler) Account(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}
	summary, err := h.engine.Account(c.UserContext(), c.Params("id"), filter)
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(summary)
}

func parseFilter(c *fiber.Ctx) (Filter, error) {
	var filter Filter
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Filter{}, fiber.NewError(http.StatusBadRequest, "from: expected RFC3339 timestamp")
		}
		filter.From = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Filter{}, fiber.NewError(http.StatusBadRequest, "to: expected RFC3339 timestamp")
		}
		filter.To = t
	}
	return filter, nil
}
