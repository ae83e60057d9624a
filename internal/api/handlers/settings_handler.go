package handlers

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"threadflow/internal/store"
	"threadflow/internal/transfer"
)

type SettingsHandler struct {
	cs store.ConfigStore
}

func NewSettingsHandler(cs store.ConfigStore) *SettingsHandler {
	return &SettingsHandler{cs: cs}
}

func (h *SettingsHandler) GetBaseURL(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"base_url": h.cs.LoadBaseURL(),
	})
}

func (h *SettingsHandler) UpdateBaseURL(c *fiber.Ctx) error {
	var req transfer.BaseURLUpdate
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	baseURL := strings.TrimSpace(req.BaseURL)
	if baseURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "base_url is required",
		})
	}

	if err := h.cs.SaveBaseURL(baseURL); err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"result": "Base URL updated to " + baseURL,
	})
}
