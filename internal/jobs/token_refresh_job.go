package job

import (
	"context"
	"log/slog"

	"threadflow/internal/service"
)

type TokenRefreshJob struct {
	ts service.TokenService
}

func NewTokenRefreshJob(ts service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{ts: ts}
}

// RefreshTokens runs from cron and extends the stored long-lived token
// when it is close to expiry. Failures are logged and retried on the
// next tick.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	if err := c.ts.RefreshToken(ctx); err != nil {
		slog.Info("unable to refresh long-lived token", "error", err)
	}
}
