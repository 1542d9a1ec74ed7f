// Package httpx maps core errors onto HTTP responses for the Fiber
// handlers.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fieldpay/fieldpay/internal/errs"
)

// Error converts a core error into a fiber error with the matching status
// code.
func Error(err error) error {
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		return fiber.NewError(http.StatusBadRequest, invalid.Error())
	}
	switch {
	case errors.Is(err, errs.ErrValidation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrStateConflict):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrNotAuthorized):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, errs.ErrInsufficientFunds), errors.Is(err, errs.ErrReversalInconsistency):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

// Actor extracts the acting user from the request. Authentication is the
// gateway's concern; the core trusts the identity header it forwards.
func Actor(c *fiber.Ctx) string {
	return c.Get("X-User-ID")
}
