package threads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"threadflow/internal/transfer"
)

const DefaultAPIURL = "https://graph.threads.net/v1.0"

// RemoteAPIError is a non-2xx response from the Threads Graph API. The
// raw body is kept so the caller can surface the remote diagnosis.
type RemoteAPIError struct {
	StatusCode int
	Body       string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("threads api error (status %d): %s", e.StatusCode, e.Body)
}

// Message extracts the remote error message when the body is the usual
// Graph API error envelope, falling back to the raw body.
func (e *RemoteAPIError) Message() string {
	var parsed transfer.ThreadsErrorResponse
	if err := json.Unmarshal([]byte(e.Body), &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return e.Body
}

// Client issues one HTTP request per operation against the Threads
// Graph API. All parameters travel as query parameters, matching the
// API's own examples, never as a request body.
type Client struct {
	apiURL      string
	userID      string
	accessToken string
	httpClient  *http.Client
}

func NewClient(apiURL, userID, accessToken string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL:      strings.TrimRight(apiURL, "/"),
		userID:      userID,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

// WithHTTPClient swaps the underlying HTTP client, for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, out any) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.apiURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Info("threads api returned non-2xx", "status", resp.StatusCode, "path", path)
		return &RemoteAPIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

// ExchangeLongLivedToken trades a short-lived token for a long-lived
// one. It authenticates with the short token itself, not the stored
// credentials.
func (c *Client) ExchangeLongLivedToken(ctx context.Context, shortToken, appSecret string) (*transfer.TokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "th_exchange_token")
	params.Set("client_secret", appSecret)
	params.Set("access_token", shortToken)

	var result transfer.TokenResponse
	if err := c.do(ctx, http.MethodGet, "/access_token", params, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("no access token returned from Threads")
	}
	return &result, nil
}

// RefreshLongLivedToken extends an unexpired long-lived token.
func (c *Client) RefreshLongLivedToken(ctx context.Context) (*transfer.TokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "th_refresh_token")
	params.Set("access_token", c.accessToken)

	var result transfer.TokenResponse
	if err := c.do(ctx, http.MethodGet, "/refresh_access_token", params, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("no access token returned from Threads")
	}
	return &result, nil
}

type ContainerParams struct {
	Text           string
	MediaType      string
	ImageURL       string
	VideoURL       string
	IsCarouselItem bool
}

// CreateContainer creates one media container. Text is attached only to
// top-level containers; carousel children never carry text.
func (c *Client) CreateContainer(ctx context.Context, p ContainerParams) (string, error) {
	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("media_type", p.MediaType)

	if !p.IsCarouselItem && p.Text != "" {
		params.Set("text", p.Text)
	}
	if p.MediaType == "IMAGE" && p.ImageURL != "" {
		params.Set("image_url", p.ImageURL)
	} else if p.MediaType == "VIDEO" && p.VideoURL != "" {
		params.Set("video_url", p.VideoURL)
	}
	if p.IsCarouselItem {
		params.Set("is_carousel_item", "true")
	}

	var result transfer.ContainerResponse
	if err := c.do(ctx, http.MethodPost, "/"+c.userID+"/threads", params, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", fmt.Errorf("no container ID returned from Threads")
	}
	return result.ID, nil
}

// CreateCarousel wraps already-created child containers in a CAROUSEL
// container. Child ids are joined as a comma-separated list.
func (c *Client) CreateCarousel(ctx context.Context, childIDs []string, text string) (string, error) {
	params := url.Values{}
	params.Set("media_type", "CAROUSEL")
	params.Set("children", strings.Join(childIDs, ","))
	params.Set("access_token", c.accessToken)
	params.Set("text", text)

	var result transfer.ContainerResponse
	if err := c.do(ctx, http.MethodPost, "/"+c.userID+"/threads", params, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", fmt.Errorf("no carousel ID returned from Threads")
	}
	return result.ID, nil
}

func (c *Client) Publish(ctx context.Context, containerID string) (string, error) {
	params := url.Values{}
	params.Set("creation_id", containerID)
	params.Set("access_token", c.accessToken)

	var result transfer.PublishResponse
	if err := c.do(ctx, http.MethodPost, "/"+c.userID+"/threads_publish", params, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", fmt.Errorf("no post ID returned from Threads")
	}
	return result.ID, nil
}

func (c *Client) GetProfile(ctx context.Context) (*transfer.ProfileResponse, error) {
	params := url.Values{}
	params.Set("fields", "username")
	params.Set("access_token", c.accessToken)

	var result transfer.ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/me", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetContainerStatus(ctx context.Context, containerID string) (*transfer.ContainerStatusResponse, error) {
	params := url.Values{}
	params.Set("fields", "status,error_message")
	params.Set("access_token", c.accessToken)

	var result transfer.ContainerStatusResponse
	if err := c.do(ctx, http.MethodGet, "/"+containerID, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListPosts returns up to limit posts created at or after since, in the
// order the service returns them (no client-side reordering).
func (c *Client) ListPosts(ctx context.Context, since time.Time, limit int) ([]transfer.ThreadPost, error) {
	if limit <= 0 {
		limit = 100
	}

	params := url.Values{}
	params.Set("fields", "id,permalink,username,timestamp,text")
	params.Set("since", since.Format("2006-01-02T15:04:05"))
	params.Set("access_token", c.accessToken)
	params.Set("limit", strconv.Itoa(limit))

	var result transfer.PostListResponse
	if err := c.do(ctx, http.MethodGet, "/"+c.userID+"/threads", params, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}
