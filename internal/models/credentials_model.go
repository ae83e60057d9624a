package models

// Credentials is the persisted result of a long-lived token exchange.
// JSON keys match the on-disk thread_config.json layout.
type Credentials struct {
	UserID      string `json:"USER_ID"`
	AccessToken string `json:"ACCESS_TOKEN"`
	AppSecret   string `json:"APP_SECRET"`
	CreatedAt   string `json:"created_at"`
	ExpiresIn   int64  `json:"expires_in"`
}

type URLConfig struct {
	BaseURL string `json:"base_url"`
}
