package account

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fieldpay/fieldpay/internal/httpx"
	"github.com/fieldpay/fieldpay/internal/money"
)

// Handler exposes pooled-account HTTP endpoints.
type Handler struct {
	store    Store
	validate *validator.Validate
}

// NewHandler builds an account HTTP handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store, validate: validator.New()}
}

type createRequest struct {
	ModeName         string `json:"mode_name" validate:"required"`
	Instrument       string `json:"instrument" validate:"required,oneof=cash upi bank"`
	AutoPay          bool   `json:"auto_pay"`
	ReceiverUserID   string `json:"receiver_user_id" validate:"required_if=AutoPay true"`
	ShowInCollection bool   `json:"show_in_collection"`
	ShowInExpense    bool   `json:"show_in_expense"`
	ShowInTransfer   bool   `json:"show_in_transfer"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// Create registers a new pooled account.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return httpx.Error(err)
	}
	now := time.Now().UTC()
	acct, err := h.store.Create(c.UserContext(), Account{
		ID:               uuid.NewString(),
		ModeName:         req.ModeName,
		Instrument:       money.Instrument(req.Instrument),
		AutoPay:          req.AutoPay,
		ReceiverUserID:   req.ReceiverUserID,
		ShowInCollection: req.ShowInCollection,
		ShowInExpense:    req.ShowInExpense,
		ShowInTransfer:   req.ShowInTransfer,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusCreated).JSON(acct)
}

// Get returns one account.
func (h *Handler) Get(c *fiber.Ctx) error {
	acct, err := h.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(acct)
}

// List returns all accounts.
func (h *Handler) List(c *fiber.Ctx) error {
	out, err := h.store.List(c.UserContext())
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(out)
}

// SetActive toggles whether the account accepts new activity.
func (h *Handler) SetActive(c *fiber.Ctx) error {
	var req setActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return httpx.Error(err)
	}
	acct, err := h.store.SetActive(c.UserContext(), c.Params("id"), *req.Active)
	if err != nil {
		return httpx.Error(err)
	}
	return c.Status(http.StatusOK).JSON(acct)
}
