package handlers

import (
	"github.com/gofiber/fiber/v2"

	"threadflow/internal/service"
)

type HistoryHandler struct {
	s service.HistoryService
}

func NewHistoryHandler(service service.HistoryService) *HistoryHandler {
	return &HistoryHandler{s: service}
}

func (h *HistoryHandler) GetHistory(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)

	report, err := h.s.ListRecent(c.Context(), days)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"result": report,
	})
}
