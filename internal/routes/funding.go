package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldpay/fieldpay/internal/funding"
)

// RegisterFundingRoutes wires wallet funding and withdrawal endpoints.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/wallets/:userId/fund", h.AddFunds)
	r.Post("/wallets/:userId/withdraw", h.WithdrawFunds)
	r.Get("/wallets/:userId", h.Balance)
}
