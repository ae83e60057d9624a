package handlers

import (
	"github.com/gofiber/fiber/v2"

	"threadflow/internal/media"
)

type MediaHandler struct {
	enc *media.Encoder
}

func NewMediaHandler(enc *media.Encoder) *MediaHandler {
	return &MediaHandler{enc: enc}
}

// View serves a generated media file back to the Threads ingestion
// fetcher. Only bare file names inside the output directory resolve.
func (h *MediaHandler) View(c *fiber.Ctx) error {
	name := c.Query("filename")

	path, err := h.enc.OpenFile(name)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "file not found",
		})
	}

	return c.SendFile(path)
}
