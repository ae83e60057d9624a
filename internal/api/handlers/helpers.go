package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"threadflow/internal/media"
	"threadflow/internal/service"
	"threadflow/internal/store"
	"threadflow/internal/threads"
)

// errorMessage flattens structured errors to a display string. This is
// the only place error kinds become text; everything below the handlers
// keeps typed errors.
func errorMessage(err error) string {
	var remoteErr *threads.RemoteAPIError
	var mediaErr *media.MediaError
	var pollErr *service.PollError
	var timeoutErr *service.PollTimeoutError

	switch {
	case errors.Is(err, store.ErrNotConfigured):
		return "Error: no credentials found, run the token exchange first"
	case errors.As(err, &remoteErr):
		return fmt.Sprintf("Error: Threads API returned status %d: %s", remoteErr.StatusCode, remoteErr.Message())
	case errors.As(err, &pollErr):
		return fmt.Sprintf("Error: video processing failed: %s", pollErr.Message)
	case errors.As(err, &timeoutErr):
		return fmt.Sprintf("Error: video was not ready after %d status checks, giving up", timeoutErr.Attempts)
	case errors.As(err, &mediaErr):
		return "Error: " + mediaErr.Error()
	default:
		return "Error: " + err.Error()
	}
}

func errorStatus(err error) int {
	var remoteErr *threads.RemoteAPIError

	switch {
	case errors.Is(err, store.ErrNotConfigured):
		return fiber.StatusPreconditionFailed
	case errors.As(err, &remoteErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(errorStatus(err)).JSON(fiber.Map{
		"error": errorMessage(err),
	})
}
