package funding

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fieldpay/fieldpay/internal/httpx"
	"github.com/fieldpay/fieldpay/internal/money"
)

// Handler exposes wallet funding HTTP endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a funding HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

type fundsRequest struct {
	Instrument string `json:"instrument" validate:"required,oneof=cash upi bank"`
	Amount     int64  `json:"amount" validate:"required,gt=0"`
	Notes      string `json:"notes"`
}

type fundsResponse struct {
	UserID   string         `json:"user_id"`
	Balances money.Balances `json:"balances"`
	Total    int64          `json:"total_balance"`
}

// AddFunds credits a wallet.
func (h *Handler) AddFunds(c *fiber.Ctx) error {
	return h.apply(c, h.service.AddFunds)
}

// WithdrawFunds debits a wallet.
func (h *Handler) WithdrawFunds(c *fiber.Ctx) error {
	return h.apply(c, h.service.WithdrawFunds)
}

// Balance returns the wallet's current state.
func (h *Handler) Balance(c *fiber.Ctx) error {
	w, err := h.service.Balance(c.UserContext(), c.Params("userId"))
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(fundsResponse{UserID: w.UserID, Balances: w.Balances, Total: w.Total()})
}

func (h *Handler) apply(c *fiber.Ctx, op func(ctx context.Context, input Input) (Result, error)) error {
	var req fundsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return httpx.Error(err)
	}
	res, err := op(c.UserContext(), Input{
		UserID:      c.Params("userId"),
		Instrument:  money.Instrument(req.Instrument),
		Amount:      req.Amount,
		PerformedBy: httpx.Actor(c),
		Notes:       req.Notes,
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(fundsResponse{UserID: res.UserID, Balances: res.Balances, Total: res.Balances.Total()})
}
