package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nerava/arrival/internal/ports"
)

const defaultNearbyRadiusM = 500

type ChargerHandler struct {
	service ports.GeoService
	log     *zap.Logger
}

func NewChargerHandler(service ports.GeoService, log *zap.Logger) *ChargerHandler {
	return &ChargerHandler{
		service: service,
		log:     log,
	}
}

func (h *ChargerHandler) Get(c *fiber.Ctx) error {
	charger, err := h.service.GetCharger(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if charger == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Charger not found"})
	}
	return c.JSON(charger)
}

// Nearby lists chargers around a point. Query params: lat, lng, radius_m
// (optional, default 500), limit (optional).
func (h *ChargerHandler) Nearby(c *fiber.Ctx) error {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lat"})
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lng"})
	}

	radiusM := float64(defaultNearbyRadiusM)
	if v := c.Query("radius_m"); v != "" {
		radiusM, err = strconv.ParseFloat(v, 64)
		if err != nil || radiusM <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid radius_m"})
		}
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit"})
		}
	}

	chargers, err := h.service.NearbyChargers(c.Context(), lat, lng, radiusM, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count":    len(chargers),
		"chargers": chargers,
	})
}
