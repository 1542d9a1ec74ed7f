package expense

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fieldpay/fieldpay/internal/httpx"
	"github.com/fieldpay/fieldpay/internal/money"
)

// Handler exposes expense HTTP endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler builds an expense HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

type createRequest struct {
	OwnerID    string `json:"owner_id" validate:"required"`
	Amount     int64  `json:"amount" validate:"required,gt=0"`
	Instrument string `json:"instrument" validate:"required,oneof=cash upi bank"`
	Category   string `json:"category" validate:"required"`
	Notes      string `json:"notes"`
}

type actionRequest struct {
	Reason   string `json:"reason"`
	Response string `json:"response"`
}

type expenseResponse struct {
	Expense  Expense        `json:"expense"`
	Balances money.Balances `json:"balances,omitempty"`
}

// Create files a new expense.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return httpx.Error(err)
	}
	e, err := h.service.Create(c.UserContext(), CreateInput{
		OwnerID:    req.OwnerID,
		CreatedBy:  httpx.Actor(c),
		Amount:     req.Amount,
		Instrument: money.Instrument(req.Instrument),
		Category:   req.Category,
		Notes:      req.Notes,
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusCreated).JSON(expenseResponse{Expense: e})
}

// Get returns one expense.
func (h *Handler) Get(c *fiber.Ctx) error {
	e, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(expenseResponse{Expense: e})
}

// List returns expenses, optionally filtered by owner.
func (h *Handler) List(c *fiber.Ctx) error {
	out, err := h.service.List(c.UserContext(), Filter{OwnerID: c.Query("owner_id")})
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Approve settles a pending expense.
func (h *Handler) Approve(c *fiber.Ctx) error {
	e, balances, err := h.service.Approve(c.UserContext(), c.Params("id"), httpx.Actor(c))
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(expenseResponse{Expense: e, Balances: balances})
}

// Reject refuses an expense, reversing it when already approved.
func (h *Handler) Reject(c *fiber.Ctx) error {
	var req actionRequest
	_ = c.BodyParser(&req)
	e, balances, err := h.service.Reject(c.UserContext(), c.Params("id"), httpx.Actor(c), req.Response)
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(expenseResponse{Expense: e, Balances: balances})
}

// Unapprove returns an approved expense to pending.
func (h *Handler) Unapprove(c *fiber.Ctx) error {
	e, balances, err := h.service.Unapprove(c.UserContext(), c.Params("id"), httpx.Actor(c))
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(expenseResponse{Expense: e, Balances: balances})
}

// Flag marks an expense for follow-up.
func (h *Handler) Flag(c *fiber.Ctx) error {
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	e, err := h.service.Flag(c.UserContext(), c.Params("id"), httpx.Actor(c), req.Reason)
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(expenseResponse{Expense: e})
}

// Resubmit returns a flagged expense to pending.
func (h *Handler) Resubmit(c *fiber.Ctx) error {
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	e, err := h.service.Resubmit(c.UserContext(), c.Params("id"), httpx.Actor(c), req.Response)
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(expenseResponse{Expense: e})
}
