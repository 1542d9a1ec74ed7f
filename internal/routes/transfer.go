package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldpay/fieldpay/internal/transfer"
)

// RegisterTransferRoutes wires the peer transfer lifecycle endpoints.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler) {
	r.Post("/transfers", h.Create)
	r.Get("/transfers", h.List)
	r.Get("/transfers/:id", h.Get)
	r.Post("/transfers/:id/approve", h.Approve)
	r.Post("/transfers/:id/reject", h.Reject)
	r.Post("/transfers/:id/cancel", h.Cancel)
	r.Post("/transfers/:id/flag", h.Flag)
	r.Post("/transfers/:id/resubmit", h.Resubmit)
}
