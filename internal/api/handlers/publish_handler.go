package handlers

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"threadflow/internal/service"
	"threadflow/internal/transfer"
)

type PublishHandler struct {
	s service.PublishService
}

func NewPublishHandler(service service.PublishService) *PublishHandler {
	return &PublishHandler{s: service}
}

// Publish runs the whole publish workflow for one request: media
// resolution, container lifecycle, final permalink.
func (h *PublishHandler) Publish(c *fiber.Ctx) error {
	var req transfer.PublishRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	result, err := h.s.PublishThread(c.Context(), &req)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"result":    fmt.Sprintf("Published successfully! Post URL: %s", result.Permalink),
		"post_id":   result.PostID,
		"permalink": result.Permalink,
	})
}
