package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"threadflow/internal/models"
	"threadflow/internal/store"
)

type TokenService interface {
	ExchangeToken(ctx context.Context, userID, shortToken, appSecret string) (*models.Credentials, error)
	RefreshToken(ctx context.Context) error
}

type tokenService struct {
	cs        store.ConfigStore
	newClient ClientFactory
	clock     Clock
}

func NewTokenService(cs store.ConfigStore, newClient ClientFactory, clock Clock) TokenService {
	return &tokenService{cs: cs, newClient: newClient, clock: clock}
}

// ExchangeToken trades a short-lived token for a long-lived one and
// overwrites the stored credentials with the result.
func (s *tokenService) ExchangeToken(ctx context.Context, userID, shortToken, appSecret string) (*models.Credentials, error) {
	api := s.newClient(userID, shortToken)

	token, err := api.ExchangeLongLivedToken(ctx, shortToken, appSecret)
	if err != nil {
		return nil, err
	}

	creds := &models.Credentials{
		UserID:      userID,
		AccessToken: token.AccessToken,
		AppSecret:   appSecret,
		CreatedAt:   s.clock.Now().Format(time.RFC3339),
		ExpiresIn:   token.ExpiresIn,
	}
	if err := s.cs.Save(creds); err != nil {
		return nil, fmt.Errorf("error saving credentials: %w", err)
	}

	slog.Info("long-lived token stored", "user_id", userID, "expires_in", token.ExpiresIn)
	return creds, nil
}

// RefreshToken extends the stored long-lived token when it is within a
// week of expiry. A missing credentials file is not an error here; the
// cron job runs before any exchange may have happened.
func (s *tokenService) RefreshToken(ctx context.Context) error {
	creds, err := s.cs.Load()
	if err != nil {
		if errors.Is(err, store.ErrNotConfigured) {
			return nil
		}
		return err
	}

	expiresAt := GetExpiresAt(creds.CreatedAt, creds.ExpiresIn)
	if s.clock.Now().Add(7 * 24 * time.Hour).Before(expiresAt) {
		return nil
	}

	api := s.newClient(creds.UserID, creds.AccessToken)
	token, err := api.RefreshLongLivedToken(ctx)
	if err != nil {
		return fmt.Errorf("error refreshing long-lived token: %w", err)
	}

	creds.AccessToken = token.AccessToken
	creds.CreatedAt = s.clock.Now().Format(time.RFC3339)
	creds.ExpiresIn = token.ExpiresIn
	if err := s.cs.Save(creds); err != nil {
		return fmt.Errorf("error saving refreshed credentials: %w", err)
	}

	slog.Info("long-lived token refreshed", "expires_in", token.ExpiresIn)
	return nil
}
