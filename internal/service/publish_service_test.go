package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"threadflow/internal/media"
	"threadflow/internal/models"
	"threadflow/internal/store"
	"threadflow/internal/threads"
	"threadflow/internal/transfer"
)

type fakeStore struct {
	creds      *models.Credentials
	baseURL    string
	savedBase  []string
	savedCreds []*models.Credentials
}

func (f *fakeStore) Load() (*models.Credentials, error) {
	if f.creds == nil {
		return nil, store.ErrNotConfigured
	}
	return f.creds, nil
}

func (f *fakeStore) Save(c *models.Credentials) error {
	f.savedCreds = append(f.savedCreds, c)
	f.creds = c
	return nil
}

func (f *fakeStore) LoadBaseURL() string { return f.baseURL }

func (f *fakeStore) SaveBaseURL(u string) error {
	f.savedBase = append(f.savedBase, u)
	f.baseURL = u
	return nil
}

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	f.sleeps = append(f.sleeps, d)
	return nil
}

type fakeAPI struct {
	created       []threads.ContainerParams
	createErrAt   int // 1-based index of the create call that fails, 0 = never
	carouselKids  []string
	carouselText  string
	published     []string
	statuses      []string // scripted status sequence, last value repeats
	statusCalls   int
	username      string
	profileErr    error
	exchangeToken *transfer.TokenResponse
}

func (f *fakeAPI) ExchangeLongLivedToken(_ context.Context, _, _ string) (*transfer.TokenResponse, error) {
	if f.exchangeToken == nil {
		return nil, errors.New("no scripted token")
	}
	return f.exchangeToken, nil
}

func (f *fakeAPI) RefreshLongLivedToken(_ context.Context) (*transfer.TokenResponse, error) {
	if f.exchangeToken == nil {
		return nil, errors.New("no scripted token")
	}
	return f.exchangeToken, nil
}

func (f *fakeAPI) CreateContainer(_ context.Context, p threads.ContainerParams) (string, error) {
	f.created = append(f.created, p)
	if f.createErrAt > 0 && len(f.created) == f.createErrAt {
		return "", &threads.RemoteAPIError{StatusCode: 400, Body: "create failed"}
	}
	return fmt.Sprintf("container-%d", len(f.created)), nil
}

func (f *fakeAPI) CreateCarousel(_ context.Context, childIDs []string, text string) (string, error) {
	f.carouselKids = childIDs
	f.carouselText = text
	return "carousel-1", nil
}

func (f *fakeAPI) Publish(_ context.Context, containerID string) (string, error) {
	f.published = append(f.published, containerID)
	return "post-1", nil
}

func (f *fakeAPI) GetProfile(_ context.Context) (*transfer.ProfileResponse, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return &transfer.ProfileResponse{Username: f.username}, nil
}

func (f *fakeAPI) GetContainerStatus(_ context.Context, containerID string) (*transfer.ContainerStatusResponse, error) {
	idx := f.statusCalls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.statusCalls++

	status := f.statuses[idx]
	resp := &transfer.ContainerStatusResponse{ID: containerID, Status: status}
	if status == models.ContainerStatusError {
		resp.ErrorMessage = "transcode failed"
	}
	return resp, nil
}

func (f *fakeAPI) ListPosts(_ context.Context, _ time.Time, _ int) ([]transfer.ThreadPost, error) {
	return nil, nil
}

func newTestPublishService(t *testing.T, api *fakeAPI) (PublishService, *fakeStore, *fakeClock) {
	t.Helper()

	fs := &fakeStore{
		creds:   &models.Credentials{UserID: "12345", AccessToken: "tok"},
		baseURL: "http://127.0.0.1:8188",
	}
	clock := &fakeClock{now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}

	enc, err := media.NewEncoder(t.TempDir())
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}

	svc := NewPublishService(fs, enc, func(_, _ string) ThreadsAPI { return api }, clock)
	return svc, fs, clock
}

func TestPublishTextOnly(t *testing.T) {
	api := &fakeAPI{username: "tester"}
	svc, _, _ := newTestPublishService(t, api)

	result, err := svc.PublishThread(context.Background(), &transfer.PublishRequest{Text: "hello world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(api.created) != 1 {
		t.Fatalf("expected 1 container, got %d", len(api.created))
	}
	if api.created[0].MediaType != "TEXT" {
		t.Errorf("expected TEXT container, got %s", api.created[0].MediaType)
	}
	if api.created[0].Text != "hello world" {
		t.Errorf("text not attached: %q", api.created[0].Text)
	}
	if len(api.published) != 1 || api.published[0] != "container-1" {
		t.Errorf("expected container-1 published, got %v", api.published)
	}
	if result.Permalink != "https://www.threads.net/@tester/post/post-1" {
		t.Errorf("unexpected permalink: %s", result.Permalink)
	}
}

func TestPublishSingleImage(t *testing.T) {
	api := &fakeAPI{username: "tester"}
	svc, _, _ := newTestPublishService(t, api)

	_, err := svc.PublishThread(context.Background(), &transfer.PublishRequest{
		Text:      "caption",
		ImageURLs: "https://example.com/a.png",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(api.created) != 1 {
		t.Fatalf("expected 1 container, got %d", len(api.created))
	}
	c := api.created[0]
	if c.MediaType != "IMAGE" || c.ImageURL != "https://example.com/a.png" {
		t.Errorf("unexpected container params: %+v", c)
	}
	if c.Text != "caption" || c.IsCarouselItem {
		t.Errorf("single image should carry text and not be a carousel item: %+v", c)
	}
}

func TestPublishCarousel(t *testing.T) {
	api := &fakeAPI{username: "tester"}
	svc, _, _ := newTestPublishService(t, api)

	_, err := svc.PublishThread(context.Background(), &transfer.PublishRequest{
		Text:      "three pics",
		ImageURLs: "https://example.com/a.png\nhttps://example.com/b.png\nhttps://example.com/c.png",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(api.created) != 3 {
		t.Fatalf("expected 3 child containers, got %d", len(api.created))
	}
	for i, c := range api.created {
		if !c.IsCarouselItem {
			t.Errorf("child %d missing is_carousel_item", i)
		}
		if c.Text != "" {
			t.Errorf("child %d must not carry text", i)
		}
	}
	if len(api.carouselKids) != 3 {
		t.Fatalf("expected 3 carousel children, got %v", api.carouselKids)
	}
	if api.carouselText != "three pics" {
		t.Errorf("carousel text lost: %q", api.carouselText)
	}
	if len(api.published) != 1 || api.published[0] != "carousel-1" {
		t.Errorf("expected carousel published, got %v", api.published)
	}
}

func TestPublishTensorBatchBecomesCarousel(t *testing.T) {
	api := &fakeAPI{username: "tester"}
	svc, _, _ := newTestPublishService(t, api)

	// batch of two 2x2 RGB frames
	data := make([]float32, 2*2*2*3)
	for i := range data {
		data[i] = 0.5
	}

	_, err := svc.PublishThread(context.Background(), &transfer.PublishRequest{
		Text:  "generated",
		Image: &transfer.ImageInput{Shape: []int{2, 2, 2, 3}, Data: data},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(api.created) != 2 {
		t.Fatalf("expected 2 child containers for a batch of 2, got %d", len(api.created))
	}
	if !strings.Contains(api.created[0].ImageURL, "/api/view?filename=") {
		t.Errorf("expected a served view URL, got %s", api.created[0].ImageURL)
	}
	if api.created[0].ImageURL == api.created[1].ImageURL {
		t.Error("batch slices must get distinct file names")
	}
}

func TestPublishRejectsMixedMedia(t *testing.T) {
	api := &fakeAPI{}
	svc, _, _ := newTestPublishService(t, api)

	_, err := svc.PublishThread(context.Background(), &transfer.PublishRequest{
		ImageURLs: "https://example.com/a.png",
		VideoURL:  "https://example.com/v.mp4",
	})
	if !errors.Is(err, ErrMixedMedia) {
		t.Fatalf("expected ErrMixedMedia, got %v", err)
	}
	if len(api.created) != 0 {
		t.Errorf("no containers should be created, got %d", len(api.created))
	}
}

func TestPublishRejectsOversizedCarousel(t *testing.T) {
	api := &fakeAPI{}
	svc, _, _ := newTestPublishService(t, api)

	urls := make([]string, 11)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/%d.png", i)
	}

	_, err := svc.PublishThread(context.Background(), &transfer.PublishRequest{
		ImageURLs: strings.Join(urls, "\n"),
	})
	if !errors.Is(err, ErrCarouselTooLarge) {
		t.Fatalf("expected ErrCarouselTooLarge, got %v", err)
	}
}

func TestPublishNotConfigured(t *testing.T) {
	api := &fakeAPI{}
	svc, fs, _ := newTestPublishService(t, api)
	fs.creds = nil

	_, err := svc.PublishThread(context.Background(), &transfer.PublishRequest{Text: "x"})
	if !errors.Is(err, store.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestPublishCarouselChildFailureAborts(t *testing.T) {
	api := &fakeAPI{createErrAt: 2}
	svc, _, _ := newTestPublishService(t, api)

	_, err := svc.PublishThread(context.Background(), &transfer.PublishRequest{
		ImageURLs: "https://example.com/a.png\nhttps://example.com/b.png\nhttps://example.com/c.png",
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if api.carouselKids != nil {
		t.Error("no carousel should be created after a child failure")
	}
	if len(api.published) != 0 {
		t.Error("nothing should be published after a child failure")
	}
}

func TestPublishBaseURLOverridePersists(t *testing.T) {
	api := &fakeAPI{username: "tester"}
	svc, fs, _ := newTestPublishService(t, api)

	_, err := svc.PublishThread(context.Background(), &transfer.PublishRequest{
		Text:    "hi",
		BaseURL: "https://tunnel.example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs.savedBase) != 1 || fs.savedBase[0] != "https://tunnel.example.com" {
		t.Errorf("base url override not persisted: %v", fs.savedBase)
	}
}

func TestVideoPublishAfterPolling(t *testing.T) {
	statuses := []string{
		models.ContainerStatusInProgress,
		models.ContainerStatusInProgress,
		models.ContainerStatusInProgress,
		models.ContainerStatusFinished,
	}
	api := &fakeAPI{username: "tester", statuses: statuses}
	svc, _, clock := newTestPublishService(t, api)

	result, err := svc.PublishThread(context.Background(), &transfer.PublishRequest{
		Text:     "watch this",
		VideoURL: "https://example.com/v.mp4",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if api.statusCalls != 4 {
		t.Errorf("expected exactly 4 status checks, got %d", api.statusCalls)
	}
	if len(clock.sleeps) != 3 {
		t.Errorf("expected 3 sleeps between checks, got %d", len(clock.sleeps))
	}
	for _, d := range clock.sleeps {
		if d != 20*time.Second {
			t.Errorf("expected 20s poll interval, got %v", d)
		}
	}
	if len(api.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(api.published))
	}
	if result.PostID != "post-1" {
		t.Errorf("unexpected post id: %s", result.PostID)
	}
}

func TestVideoPublishRemoteErrorAborts(t *testing.T) {
	api := &fakeAPI{statuses: []string{models.ContainerStatusError}}
	svc, _, _ := newTestPublishService(t, api)

	_, err := svc.PublishThread(context.Background(), &transfer.PublishRequest{
		VideoURL: "https://example.com/v.mp4",
	})

	var pollErr *PollError
	if !errors.As(err, &pollErr) {
		t.Fatalf("expected PollError, got %v", err)
	}
	if pollErr.Message != "transcode failed" {
		t.Errorf("remote message lost: %q", pollErr.Message)
	}
	if api.statusCalls != 1 {
		t.Errorf("expected 1 status check, got %d", api.statusCalls)
	}
	if len(api.published) != 0 {
		t.Error("failed container must not be published")
	}
}

func TestVideoPublishTimesOut(t *testing.T) {
	api := &fakeAPI{statuses: []string{models.ContainerStatusInProgress}}
	svc, _, _ := newTestPublishService(t, api)

	_, err := svc.PublishThread(context.Background(), &transfer.PublishRequest{
		VideoURL: "https://example.com/v.mp4",
	})

	var timeoutErr *PollTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected PollTimeoutError, got %v", err)
	}
	if api.statusCalls != 30 {
		t.Errorf("expected exactly 30 status checks, got %d", api.statusCalls)
	}
	if len(api.published) != 0 {
		t.Error("timed-out container must not be published")
	}
}

func TestPublishProfileFailureLeavesUsernameBlank(t *testing.T) {
	api := &fakeAPI{profileErr: errors.New("profile down")}
	svc, _, _ := newTestPublishService(t, api)

	result, err := svc.PublishThread(context.Background(), &transfer.PublishRequest{Text: "hi"})
	if err != nil {
		t.Fatalf("publish must not fail on a profile error: %v", err)
	}
	if result.Permalink != "https://www.threads.net/@/post/post-1" {
		t.Errorf("unexpected permalink: %s", result.Permalink)
	}
}

func TestPublishSkipsInvalidImageURLs(t *testing.T) {
	api := &fakeAPI{username: "tester"}
	svc, _, _ := newTestPublishService(t, api)

	_, err := svc.PublishThread(context.Background(), &transfer.PublishRequest{
		Text:      "hi",
		ImageURLs: "not-a-url\nhttps://example.com/ok.png\n   \nftp://nope",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.created) != 1 || api.created[0].ImageURL != "https://example.com/ok.png" {
		t.Errorf("invalid urls should be skipped, got %+v", api.created)
	}
}
