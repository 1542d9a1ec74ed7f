package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldpay/fieldpay/internal/collection"
)

// RegisterCollectionRoutes wires the collection verification endpoints.
func RegisterCollectionRoutes(r fiber.Router, h *collection.Handler) {
	r.Post("/collections", h.Create)
	r.Get("/collections", h.List)
	r.Get("/collections/:id", h.Get)
	r.Post("/collections/:id/verify", h.Verify)
	r.Post("/collections/:id/reject", h.Reject)
	r.Post("/collections/:id/flag", h.Flag)
	r.Post("/collections/:id/resubmit", h.Resubmit)
}
