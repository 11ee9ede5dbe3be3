package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nerava/arrival/internal/ports"
)

type BillingHandler struct {
	service ports.BillingService
	log     *zap.Logger
}

func NewBillingHandler(service ports.BillingService, log *zap.Logger) *BillingHandler {
	return &BillingHandler{
		service: service,
		log:     log,
	}
}

// Export returns billing events for a period. Query params "from" and "to"
// are RFC3339; "format" selects json (default) or csv.
func (h *BillingHandler) Export(c *fiber.Ctx) error {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid from timestamp"})
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid to timestamp"})
	}
	if !to.After(from) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to must be after from"})
	}

	if c.Query("format") == "csv" {
		data, err := h.service.ExportCSV(c.Context(), from, to)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="billing_events.csv"`)
		return c.Send(data)
	}

	events, err := h.service.Export(c.Context(), from, to)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"from":   from,
		"to":     to,
		"count":  len(events),
		"events": events,
	})
}

// GetEvent returns the billing event for a session, if one was recorded
func (h *BillingHandler) GetEvent(c *fiber.Ctx) error {
	event, err := h.service.GetEvent(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if event == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No billing event for session"})
	}
	return c.JSON(event)
}
