package service

import (
	"context"
	"testing"
	"time"

	"threadflow/internal/models"
	"threadflow/internal/transfer"
)

func TestExchangeTokenStoresCredentials(t *testing.T) {
	api := &fakeAPI{exchangeToken: &transfer.TokenResponse{
		AccessToken: "long-lived",
		ExpiresIn:   5184000,
	}}
	fs := &fakeStore{}
	clock := &fakeClock{now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}

	svc := NewTokenService(fs, func(_, _ string) ThreadsAPI { return api }, clock)

	creds, err := svc.ExchangeToken(context.Background(), "12345", "short", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if creds.UserID != "12345" || creds.AccessToken != "long-lived" || creds.AppSecret != "secret" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
	if creds.ExpiresIn != 5184000 {
		t.Errorf("expires_in = %d", creds.ExpiresIn)
	}
	if len(fs.savedCreds) != 1 {
		t.Fatalf("expected credentials persisted once, got %d", len(fs.savedCreds))
	}
	if _, err := time.Parse(time.RFC3339, creds.CreatedAt); err != nil {
		t.Errorf("created_at not RFC3339: %q", creds.CreatedAt)
	}
}

func TestRefreshTokenSkipsWhenFresh(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
	api := &fakeAPI{exchangeToken: &transfer.TokenResponse{AccessToken: "renewed", ExpiresIn: 5184000}}
	fs := &fakeStore{creds: &models.Credentials{
		UserID:      "12345",
		AccessToken: "current",
		CreatedAt:   clock.now.Format(time.RFC3339),
		ExpiresIn:   5184000, // 60 days out, nowhere near expiry
	}}

	svc := NewTokenService(fs, func(_, _ string) ThreadsAPI { return api }, clock)

	if err := svc.RefreshToken(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs.savedCreds) != 0 {
		t.Error("fresh token should not be refreshed")
	}
}

func TestRefreshTokenRenewsNearExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
	api := &fakeAPI{exchangeToken: &transfer.TokenResponse{AccessToken: "renewed", ExpiresIn: 5184000}}
	fs := &fakeStore{creds: &models.Credentials{
		UserID:      "12345",
		AccessToken: "stale",
		CreatedAt:   clock.now.AddDate(0, 0, -58).Format(time.RFC3339),
		ExpiresIn:   5184000, // 60 days, so 2 days left
	}}

	svc := NewTokenService(fs, func(_, _ string) ThreadsAPI { return api }, clock)

	if err := svc.RefreshToken(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs.savedCreds) != 1 {
		t.Fatalf("expected refreshed credentials persisted, got %d saves", len(fs.savedCreds))
	}
	if fs.creds.AccessToken != "renewed" {
		t.Errorf("token not replaced: %s", fs.creds.AccessToken)
	}
}

func TestRefreshTokenNoCredentialsIsNoop(t *testing.T) {
	svc := NewTokenService(&fakeStore{}, func(_, _ string) ThreadsAPI { return &fakeAPI{} }, &fakeClock{now: time.Now()})

	if err := svc.RefreshToken(context.Background()); err != nil {
		t.Fatalf("missing credentials must not error from cron: %v", err)
	}
}
