package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/ports"
)

type SessionHandler struct {
	service ports.SessionService
	log     *zap.Logger
}

func NewSessionHandler(service ports.SessionService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		log:     log,
	}
}

type CreateSessionRequest struct {
	MerchantID  string `json:"merchant_id"`
	ChargerID   string `json:"charger_id"`
	ArrivalType string `json:"arrival_type"`
}

func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	driverID := c.Locals("actor_id").(string)

	session, err := h.service.Create(c.Context(), &ports.CreateSessionRequest{
		DriverID:    driverID,
		MerchantID:  req.MerchantID,
		ChargerID:   req.ChargerID,
		ArrivalType: domain.ArrivalType(req.ArrivalType),
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

type BindOrderRequest struct {
	OrderNumber         string `json:"order_number"`
	EstimatedTotalCents *int64 `json:"estimated_total_cents"`
}

func (h *SessionHandler) BindOrder(c *fiber.Ctx) error {
	var req BindOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	session, err := h.service.BindOrder(c.Context(), c.Params("id"), req.OrderNumber, req.EstimatedTotalCents)
	if err != nil {
		return err
	}
	return c.JSON(session)
}

type ConfirmArrivalRequest struct {
	Mode     string           `json:"mode"`
	Location *domain.Location `json:"location"`
}

func (h *SessionHandler) ConfirmArrival(c *fiber.Ctx) error {
	var req ConfirmArrivalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	session, err := h.service.ConfirmArrival(c.Context(), &ports.ConfirmArrivalRequest{
		SessionID: c.Params("id"),
		Mode:      domain.ConfirmMode(req.Mode),
		Location:  req.Location,
	})
	if err != nil {
		return err
	}
	return c.JSON(session)
}

type MerchantConfirmRequest struct {
	Confirmed  bool   `json:"confirmed"`
	TotalCents *int64 `json:"total_cents"`
}

func (h *SessionHandler) MerchantConfirm(c *fiber.Ctx) error {
	var req MerchantConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	session, err := h.service.MerchantConfirm(c.Context(), c.Params("id"), req.Confirmed, req.TotalCents)
	if err != nil {
		return err
	}
	return c.JSON(session)
}

type POSTotalRequest struct {
	TotalCents int64 `json:"total_cents"`
}

func (h *SessionHandler) RecordPOSTotal(c *fiber.Ctx) error {
	var req POSTotalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	if err := h.service.RecordPOSTotal(c.Context(), c.Params("id"), req.TotalCents); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionHandler) Cancel(c *fiber.Ctx) error {
	session, err := h.service.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(session)
}

func (h *SessionHandler) Get(c *fiber.Ctx) error {
	session, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if session == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}
	return c.JSON(session)
}

func (h *SessionHandler) GetActive(c *fiber.Ctx) error {
	driverID := c.Locals("actor_id").(string)

	session, err := h.service.GetActive(c.Context(), driverID)
	if err != nil {
		return err
	}
	if session == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active session"})
	}
	return c.JSON(session)
}
