package handlers

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"threadflow/internal/service"
	"threadflow/internal/transfer"
)

type AuthHandler struct {
	s service.TokenService
}

func NewAuthHandler(service service.TokenService) *AuthHandler {
	return &AuthHandler{s: service}
}

// ExchangeToken trades the submitted short-lived token for a long-lived
// one and stores the resulting credentials.
func (h *AuthHandler) ExchangeToken(c *fiber.Ctx) error {
	var req transfer.TokenExchangeRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	if req.UserID == "" || req.AccessToken == "" || req.AppSecret == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id, access_token and app_secret are required",
		})
	}

	creds, err := h.s.ExchangeToken(c.Context(), req.UserID, req.AccessToken, req.AppSecret)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"result": fmt.Sprintf("Exchange succeeded! New long-lived token stored (expires in %d seconds)", creds.ExpiresIn),
	})
}
