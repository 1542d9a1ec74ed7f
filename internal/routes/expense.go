package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldpay/fieldpay/internal/expense"
)

// RegisterExpenseRoutes wires the expense claim lifecycle endpoints.
func RegisterExpenseRoutes(r fiber.Router, h *expense.Handler) {
	r.Post("/expenses", h.Create)
	r.Get("/expenses", h.List)
	r.Get("/expenses/:id", h.Get)
	r.Post("/expenses/:id/approve", h.Approve)
	r.Post("/expenses/:id/reject", h.Reject)
	r.Post("/expenses/:id/unapprove", h.Unapprove)
	r.Post("/expenses/:id/flag", h.Flag)
	r.Post("/expenses/:id/resubmit", h.Resubmit)
}
