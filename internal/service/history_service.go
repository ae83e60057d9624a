package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"threadflow/internal/store"
)

type HistoryService interface {
	ListRecent(ctx context.Context, daysBack int) (string, error)
}

type historyService struct {
	cs        store.ConfigStore
	newClient ClientFactory
	clock     Clock
}

func NewHistoryService(cs store.ConfigStore, newClient ClientFactory, clock Clock) HistoryService {
	return &historyService{cs: cs, newClient: newClient, clock: clock}
}

// ListRecent renders the posts of the last daysBack days as a report.
// Posts keep the order the service returned them in.
func (s *historyService) ListRecent(ctx context.Context, daysBack int) (string, error) {
	if daysBack < 1 || daysBack > 365 {
		return "", fmt.Errorf("days must be between 1 and 365, got %d", daysBack)
	}

	creds, err := s.cs.Load()
	if err != nil {
		return "", err
	}
	api := s.newClient(creds.UserID, creds.AccessToken)

	since := s.clock.Now().AddDate(0, 0, -daysBack)
	posts, err := api.ListPosts(ctx, since, 100)
	if err != nil {
		return "", err
	}

	if len(posts) == 0 {
		return fmt.Sprintf("No posts in the last %d days.", daysBack), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== Threads posts from the last %d days ===\n\n", daysBack)

	for i, post := range posts {
		text := post.Text
		if text == "" {
			text = "(no text)"
		}

		fmt.Fprintf(&b, "Post %d\n", i+1)
		fmt.Fprintf(&b, "Time: %s\n", formatTimestamp(post.Timestamp))
		fmt.Fprintf(&b, "Text: %s\n", text)
		fmt.Fprintf(&b, "Link: %s\n", post.Permalink)
		fmt.Fprintf(&b, "ID: %s\n", post.ID)
		b.WriteString(strings.Repeat("-", 50) + "\n\n")
	}

	return b.String(), nil
}

// formatTimestamp renders an ISO timestamp in local time, falling back
// to the raw string when it does not parse.
func formatTimestamp(ts string) string {
	if ts == "" {
		return "unknown time"
	}
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		// the API sometimes emits +0000 instead of a colonized offset
		parsed, err = time.Parse("2006-01-02T15:04:05-0700", ts)
	}
	if err != nil {
		return ts
	}
	return parsed.Local().Format("2006-01-02 15:04:05")
}
