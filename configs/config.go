package config

import "os"

type Config struct {
	ListenAddr     string
	ConfigDir      string
	OutputDir      string
	DefaultBaseURL string
	ThreadsAPIURL  string
	SecretKey      string
}

func LoadConfig() *Config {
	return &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8188"),
		ConfigDir:      getEnv("CONFIG_DIR", "token"),
		OutputDir:      getEnv("OUTPUT_DIR", "output"),
		DefaultBaseURL: getEnv("DEFAULT_BASE_URL", "http://127.0.0.1:8188"),
		ThreadsAPIURL:  getEnv("THREADS_API_URL", "https://graph.threads.net/v1.0"),
		SecretKey:      getEnv("SECRET_KEY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
