package models

type MediaKind string

const (
	MediaKindText  MediaKind = "TEXT"
	MediaKindImage MediaKind = "IMAGE"
	MediaKindVideo MediaKind = "VIDEO"
)

// Remote container statuses as reported by the Threads Graph API.
const (
	ContainerStatusPending    = "PENDING"
	ContainerStatusInProgress = "IN_PROGRESS"
	ContainerStatusFinished   = "FINISHED"
	ContainerStatusError      = "ERROR"
	ContainerStatusPublished  = "PUBLISHED"
)

type MediaAsset struct {
	Kind           MediaKind `json:"kind"`
	SourceURL      string    `json:"source_url"`
	IsCarouselItem bool      `json:"is_carousel_item"`
}

// MediaContainer is the client-side view of a server-side staging
// container. Only the id and last observed status are held locally.
type MediaContainer struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type PublishResult struct {
	PostID    string `json:"post_id"`
	Permalink string `json:"permalink"`
}
