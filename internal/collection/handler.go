package collection

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fieldpay/fieldpay/internal/httpx"
	"github.com/fieldpay/fieldpay/internal/money"
)

// Handler exposes collection HTTP endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a collection HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

type createRequest struct {
	CollectorID string `json:"collector_id" validate:"required"`
	AccountID   string `json:"account_id" validate:"required"`
	ReceiverID  string `json:"receiver_id"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Instrument  string `json:"instrument" validate:"required,oneof=cash upi bank"`
	Notes       string `json:"notes"`
}

type actionRequest struct {
	Reason   string `json:"reason"`
	Response string `json:"response"`
}

type collectionResponse struct {
	Collection Collection     `json:"collection"`
	Balances   money.Balances `json:"balances,omitempty"`
}

// Create submits a pending collection against a pooled account.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return httpx.Error(err)
	}
	col, err := h.service.Create(c.UserContext(), CreateInput{
		CollectorID: req.CollectorID,
		AccountID:   req.AccountID,
		ReceiverID:  req.ReceiverID,
		Amount:      req.Amount,
		Instrument:  money.Instrument(req.Instrument),
		Notes:       req.Notes,
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusCreated).JSON(collectionResponse{Collection: col})
}

// Get returns one collection record.
func (h *Handler) Get(c *fiber.Ctx) error {
	col, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(collectionResponse{Collection: col})
}

// List returns collection records, optionally filtered.
func (h *Handler) List(c *fiber.Ctx) error {
	out, err := h.service.List(c.UserContext(), Filter{
		CollectorID: c.Query("collector_id"),
		AccountID:   c.Query("account_id"),
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Verify settles a pending collection.
func (h *Handler) Verify(c *fiber.Ctx) error {
	col, balances, err := h.service.Verify(c.UserContext(), c.Params("id"), httpx.Actor(c))
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(collectionResponse{Collection: col, Balances: balances})
}

// Reject refuses a collection, reversing its settlement when verified.
func (h *Handler) Reject(c *fiber.Ctx) error {
	var req actionRequest
	_ = c.BodyParser(&req)
	col, balances, err := h.service.Reject(c.UserContext(), c.Params("id"), httpx.Actor(c), req.Response)
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(collectionResponse{Collection: col, Balances: balances})
}

// Flag marks a collection for follow-up.
func (h *Handler) Flag(c *fiber.Ctx) error {
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	col, err := h.service.Flag(c.UserContext(), c.Params("id"), httpx.Actor(c), req.Reason)
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(collectionResponse{Collection: col})
}

// Resubmit returns a flagged collection to pending.
func (h *Handler) Resubmit(c *fiber.Ctx) error {
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	col, err := h.service.Resubmit(c.UserContext(), c.Params("id"), httpx.Actor(c), req.Response)
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(collectionResponse{Collection: col})
}
