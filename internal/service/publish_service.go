package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"threadflow/internal/media"
	"threadflow/internal/models"
	"threadflow/internal/store"
	"threadflow/internal/threads"
	"threadflow/internal/transfer"
)

// ThreadsAPI is the remote surface the workflow drives. Satisfied by
// *threads.Client; faked in tests.
type ThreadsAPI interface {
	ExchangeLongLivedToken(ctx context.Context, shortToken, appSecret string) (*transfer.TokenResponse, error)
	RefreshLongLivedToken(ctx context.Context) (*transfer.TokenResponse, error)
	CreateContainer(ctx context.Context, p threads.ContainerParams) (string, error)
	CreateCarousel(ctx context.Context, childIDs []string, text string) (string, error)
	Publish(ctx context.Context, containerID string) (string, error)
	GetProfile(ctx context.Context) (*transfer.ProfileResponse, error)
	GetContainerStatus(ctx context.Context, containerID string) (*transfer.ContainerStatusResponse, error)
	ListPosts(ctx context.Context, since time.Time, limit int) ([]transfer.ThreadPost, error)
}

// ClientFactory builds an authenticated API client for the stored
// credentials of the current request.
type ClientFactory func(userID, accessToken string) ThreadsAPI

const (
	maxStatusChecks     = 30
	statusCheckInterval = 20 * time.Second
	maxCarouselItems    = 10
)

var (
	// ErrMixedMedia: supplying both images and a video in one request is
	// rejected up front instead of picking a branch arbitrarily.
	ErrMixedMedia = errors.New("cannot publish images and a video in the same request")
	// ErrCarouselTooLarge enforces the documented Threads carousel limit.
	ErrCarouselTooLarge = fmt.Errorf("a carousel can hold at most %d images", maxCarouselItems)
)

// PollError is a remote ERROR status observed while waiting for a video
// container to finish processing.
type PollError struct {
	ContainerID string
	Message     string
}

func (e *PollError) Error() string {
	return fmt.Sprintf("video processing failed for container %s: %s", e.ContainerID, e.Message)
}

// PollTimeoutError means the container never reached FINISHED within
// the attempt budget. The container is left unpublished.
type PollTimeoutError struct {
	ContainerID string
	Attempts    int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("video container %s not ready after %d status checks", e.ContainerID, e.Attempts)
}

// States of the video polling machine.
type pollState int

const (
	pollCreated pollState = iota
	pollPolling
	pollReady
	pollFailed
	pollTimedOut
)

type PublishService interface {
	PublishThread(ctx context.Context, req *transfer.PublishRequest) (*models.PublishResult, error)
}

type publishService struct {
	cs        store.ConfigStore
	enc       *media.Encoder
	newClient ClientFactory
	clock     Clock
}

func NewPublishService(cs store.ConfigStore, enc *media.Encoder, newClient ClientFactory, clock Clock) PublishService {
	return &publishService{
		cs:        cs,
		enc:       enc,
		newClient: newClient,
		clock:     clock,
	}
}

// PublishThread resolves media into URLs, selects the publish branch
// from the asset count, drives the container lifecycle and returns the
// permalink of the new post.
func (s *publishService) PublishThread(ctx context.Context, req *transfer.PublishRequest) (*models.PublishResult, error) {
	creds, err := s.cs.Load()
	if err != nil {
		return nil, err
	}
	api := s.newClient(creds.UserID, creds.AccessToken)

	baseURL := s.cs.LoadBaseURL()
	if override := strings.TrimSpace(req.BaseURL); override != "" {
		baseURL = override
		if err := s.cs.SaveBaseURL(baseURL); err != nil {
			slog.Info("error saving base url", "error", err)
		}
		slog.Info("base url updated", "base_url", baseURL)
	}

	imageURLs := s.collectImageURLs(req, baseURL)
	videoSource := strings.TrimSpace(req.VideoURL)
	if videoSource == "" {
		videoSource = strings.TrimSpace(req.VideoPath)
	}

	if videoSource != "" && len(imageURLs) > 0 {
		return nil, ErrMixedMedia
	}
	if len(imageURLs) > maxCarouselItems {
		return nil, ErrCarouselTooLarge
	}

	var containerID string
	switch {
	case videoSource != "":
		containerID, err = s.createVideoContainer(ctx, api, req.Text, videoSource, baseURL)
	case len(imageURLs) == 0:
		containerID, err = api.CreateContainer(ctx, threads.ContainerParams{
			Text:      req.Text,
			MediaType: string(models.MediaKindText),
		})
	case len(imageURLs) == 1:
		containerID, err = api.CreateContainer(ctx, threads.ContainerParams{
			Text:      req.Text,
			MediaType: string(models.MediaKindImage),
			ImageURL:  imageURLs[0],
		})
	default:
		containerID, err = s.createCarousel(ctx, api, req.Text, imageURLs)
	}
	if err != nil {
		return nil, err
	}

	postID, err := api.Publish(ctx, containerID)
	if err != nil {
		return nil, err
	}

	return s.finalize(ctx, api, postID), nil
}

// collectImageURLs gathers the tensor-encoded images first, then the
// user-supplied URL list. An encoder failure only skips the tensor
// asset; the publish attempt continues with whatever resolved.
func (s *publishService) collectImageURLs(req *transfer.PublishRequest, baseURL string) []string {
	var urls []string

	if req.Image != nil {
		tensor := &media.Tensor{Shape: req.Image.Shape, Data: req.Image.Data}
		encoded, err := s.enc.EncodeImage(tensor, baseURL)
		if err != nil {
			slog.Error("image encoding failed, skipping asset", "error", err)
		} else {
			urls = append(urls, encoded...)
		}
	}

	for _, line := range strings.Split(req.ImageURLs, "\n") {
		u := strings.TrimSpace(line)
		if u == "" {
			continue
		}
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			urls = append(urls, u)
		} else {
			slog.Info("skipping invalid image url", "url", u)
		}
	}

	return urls
}

func (s *publishService) createCarousel(ctx context.Context, api ThreadsAPI, text string, imageURLs []string) (string, error) {
	childIDs := make([]string, 0, len(imageURLs))
	for _, u := range imageURLs {
		id, err := api.CreateContainer(ctx, threads.ContainerParams{
			MediaType:      string(models.MediaKindImage),
			ImageURL:       u,
			IsCarouselItem: true,
		})
		if err != nil {
			// one failed child aborts the whole request, no partial carousel
			return "", fmt.Errorf("error creating carousel item: %w", err)
		}
		childIDs = append(childIDs, id)
	}

	return api.CreateCarousel(ctx, childIDs, text)
}

func (s *publishService) createVideoContainer(ctx context.Context, api ThreadsAPI, text, source, baseURL string) (string, error) {
	videoURL, err := s.enc.EncodeLocalVideo(source, baseURL)
	if err != nil {
		return "", err
	}

	containerID, err := api.CreateContainer(ctx, threads.ContainerParams{
		Text:      text,
		MediaType: string(models.MediaKindVideo),
		VideoURL:  videoURL,
	})
	if err != nil {
		return "", err
	}

	if err := s.waitForContainer(ctx, api, containerID); err != nil {
		return "", err
	}
	return containerID, nil
}

// waitForContainer runs the bounded polling machine: up to
// maxStatusChecks status reads, statusCheckInterval apart. FINISHED
// moves to ready, ERROR aborts with the remote message, anything else
// (including transient IN_PROGRESS or PUBLISHED readings) consumes one
// attempt. There is no cleanup call for an abandoned container.
func (s *publishService) waitForContainer(ctx context.Context, api ThreadsAPI, containerID string) error {
	state := pollCreated
	attempts := 0
	var remoteMessage string

	for {
		switch state {
		case pollCreated:
			state = pollPolling

		case pollPolling:
			if attempts >= maxStatusChecks {
				state = pollTimedOut
				continue
			}
			attempts++

			status, err := api.GetContainerStatus(ctx, containerID)
			if err != nil {
				return err
			}

			switch status.Status {
			case models.ContainerStatusFinished:
				state = pollReady
			case models.ContainerStatusError:
				remoteMessage = status.ErrorMessage
				state = pollFailed
			default:
				slog.Info("video container not ready yet",
					"container_id", containerID, "status", status.Status, "attempt", attempts)
				if attempts < maxStatusChecks {
					if err := s.clock.Sleep(ctx, statusCheckInterval); err != nil {
						return err
					}
				}
			}

		case pollReady:
			slog.Info("video container ready", "container_id", containerID, "attempts", attempts)
			return nil

		case pollFailed:
			return &PollError{ContainerID: containerID, Message: remoteMessage}

		case pollTimedOut:
			return &PollTimeoutError{ContainerID: containerID, Attempts: attempts}
		}
	}
}

// finalize composes the permalink. A failed username lookup degrades to
// a blank handle rather than failing a post that already published.
func (s *publishService) finalize(ctx context.Context, api ThreadsAPI, postID string) *models.PublishResult {
	username := ""
	if profile, err := api.GetProfile(ctx); err != nil {
		slog.Info("error fetching profile for permalink", "error", err)
	} else {
		username = profile.Username
	}

	return &models.PublishResult{
		PostID:    postID,
		Permalink: fmt.Sprintf("https://www.threads.net/@%s/post/%s", username, postID),
	}
}
