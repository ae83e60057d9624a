package transfer

// Typed request/response shapes for the Threads Graph API. Every remote
// payload gets an explicit struct so malformed responses fail at decode
// time instead of at optional-key lookup time.

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type ContainerResponse struct {
	ID string `json:"id"`
}

type PublishResponse struct {
	ID string `json:"id"`
}

type ProfileResponse struct {
	Username string `json:"username"`
}

type ContainerStatusResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type ThreadPost struct {
	ID        string `json:"id"`
	Permalink string `json:"permalink"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

type PostListResponse struct {
	Data []ThreadPost `json:"data"`
}

type ThreadsErrorResponse struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		FbtraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

// PublishRequest is the JSON body accepted by the publish endpoint. The
// image tensor mirrors the host application's in-memory representation:
// a flat float array plus a shape.
type PublishRequest struct {
	Text      string      `json:"text"`
	BaseURL   string      `json:"base_url,omitempty"`
	Image     *ImageInput `json:"image,omitempty"`
	ImageURLs string      `json:"image_urls,omitempty"`
	VideoPath string      `json:"video_path,omitempty"`
	VideoURL  string      `json:"video_url,omitempty"`
}

type ImageInput struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

type TokenExchangeRequest struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	AppSecret   string `json:"app_secret"`
}

type BaseURLUpdate struct {
	BaseURL string `json:"base_url"`
}
