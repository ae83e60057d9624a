package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"threadflow/internal/models"
	"threadflow/pkg/utils"
)

// ErrNotConfigured means no token exchange has been run yet, so the
// credentials file does not exist.
var ErrNotConfigured = errors.New("credentials not configured: run the token exchange first")

const (
	credentialsFile = "thread_config.json"
	urlConfigFile   = "url.json"
)

type ConfigStore interface {
	Load() (*models.Credentials, error)
	Save(creds *models.Credentials) error
	LoadBaseURL() string
	SaveBaseURL(baseURL string) error
}

// FileConfigStore keeps the two JSON documents under a single config
// directory. A process-wide mutex serializes read-modify-write; cross
// process writers still race last-writer-wins, which is acceptable for
// a single-operator setup.
type FileConfigStore struct {
	dir            string
	defaultBaseURL string
	secretKey      string
	mu             sync.Mutex
}

func NewFileConfigStore(dir, defaultBaseURL, secretKey string) (*FileConfigStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating config directory %s: %w", dir, err)
	}
	return &FileConfigStore{
		dir:            dir,
		defaultBaseURL: defaultBaseURL,
		secretKey:      secretKey,
	}, nil
}

func (s *FileConfigStore) Load() (*models.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, credentialsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("error reading credentials file: %w", err)
	}

	var creds models.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("error parsing credentials file: %w", err)
	}

	if s.secretKey != "" {
		token, err := utils.Decrypt(creds.AccessToken, []byte(s.secretKey))
		if err != nil {
			return nil, fmt.Errorf("error decrypting access token: %w", err)
		}
		creds.AccessToken = token
	}

	return &creds, nil
}

func (s *FileConfigStore) Save(creds *models.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *creds
	if s.secretKey != "" {
		encrypted, err := utils.Encrypt([]byte(creds.AccessToken), []byte(s.secretKey))
		if err != nil {
			return fmt.Errorf("error encrypting access token: %w", err)
		}
		stored.AccessToken = encrypted
	}

	data, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(s.dir, credentialsFile), data, 0o600)
}

func (s *FileConfigStore) LoadBaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, urlConfigFile))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Info(err.Error())
		}
		return s.defaultBaseURL
	}

	var cfg models.URLConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Info(err.Error())
		return s.defaultBaseURL
	}
	if cfg.BaseURL == "" {
		return s.defaultBaseURL
	}
	return cfg.BaseURL
}

func (s *FileConfigStore) SaveBaseURL(baseURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(&models.URLConfig{BaseURL: baseURL}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, urlConfigFile), data, 0o644)
}
