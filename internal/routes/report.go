package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldpay/fieldpay/internal/report"
)

// RegisterReportRoutes wires the reconciliation reporting endpoints.
func RegisterReportRoutes(r fiber.Router, h *report.Handler) {
	r.Get("/reports/wallets", h.Wallet)
	r.Get("/reports/accounts/:id", h.Account)
}
