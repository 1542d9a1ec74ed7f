package transfer

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fieldpay/fieldpay/internal/httpx"
	"github.com/fieldpay/fieldpay/internal/money"
)

// Handler exposes transfer HTTP endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a transfer HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

type createRequest struct {
	SenderID   string `json:"sender_id" validate:"required"`
	ReceiverID string `json:"receiver_id" validate:"required"`
	Amount     int64  `json:"amount" validate:"required,gt=0"`
	Instrument string `json:"instrument" validate:"required,oneof=cash upi bank"`
	Notes      string `json:"notes"`
}

type actionRequest struct {
	Reason   string `json:"reason"`
	Response string `json:"response"`
}

type transferResponse struct {
	Transfer Transfer       `json:"transfer"`
	Balances money.Balances `json:"balances,omitempty"`
}

// Create records a pending transfer request.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return httpx.Error(err)
	}
	t, err := h.service.Create(c.UserContext(), CreateInput{
		SenderID:    req.SenderID,
		ReceiverID:  req.ReceiverID,
		InitiatedBy: httpx.Actor(c),
		Amount:      req.Amount,
		Instrument:  money.Instrument(req.Instrument),
		Notes:       req.Notes,
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusCreated).JSON(transferResponse{Transfer: t})
}

// Get returns one transfer.
func (h *Handler) Get(c *fiber.Ctx) error {
	t, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(transferResponse{Transfer: t})
}

// List returns transfers, optionally filtered by participant.
func (h *Handler) List(c *fiber.Ctx) error {
	out, err := h.service.List(c.UserContext(), Filter{UserID: c.Query("user_id")})
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Approve settles a pending transfer.
func (h *Handler) Approve(c *fiber.Ctx) error {
	t, balances, err := h.service.Approve(c.UserContext(), c.Params("id"), httpx.Actor(c))
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(transferResponse{Transfer: t, Balances: balances})
}

// Reject refuses a transfer, reversing it when already completed.
func (h *Handler) Reject(c *fiber.Ctx) error {
	var req actionRequest
	_ = c.BodyParser(&req)
	t, balances, err := h.service.Reject(c.UserContext(), c.Params("id"), httpx.Actor(c), req.Response)
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(transferResponse{Transfer: t, Balances: balances})
}

// Cancel withdraws a pending transfer.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	t, err := h.service.Cancel(c.UserContext(), c.Params("id"), httpx.Actor(c))
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(transferResponse{Transfer: t})
}

// Flag marks a transfer for follow-up.
func (h *Handler) Flag(c *fiber.Ctx) error {
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	t, err := h.service.Flag(c.UserContext(), c.Params("id"), httpx.Actor(c), req.Reason)
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(transferResponse{Transfer: t})
}

// Resubmit returns a flagged transfer to pending.
func (h *Handler) Resubmit(c *fiber.Ctx) error {
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	t, err := h.service.Resubmit(c.UserContext(), c.Params("id"), httpx.Actor(c), req.Response)
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(transferResponse{Transfer: t})
}
