package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldpay/fieldpay/internal/account"
)

// RegisterAccountRoutes wires pooled-account management endpoints.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	r.Post("/accounts", h.Create)
	r.Get("/accounts", h.List)
	r.Get("/accounts/:id", h.Get)
	r.Patch("/accounts/:id/active", h.SetActive)
}
