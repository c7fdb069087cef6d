package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration values.
type Config struct {
	Port        string
	BaseURL     string
	StorageDir  string
	DatabaseURL string
	LogLevel    string
	CORSOrigins []string
	Gemini      GeminiConfig
	Media       MediaConfig
}

// GeminiConfig describes how to reach the external generation and judge models.
type GeminiConfig struct {
	APIKey     string
	ImageModel string
	JudgeModel string
	// MaxCallsPerMinute throttles outbound model calls across all requests.
	MaxCallsPerMinute int
}

// MediaConfig describes S3/media related configuration. When Bucket and
// Region are empty the local filesystem store is used instead.
type MediaConfig struct {
	Bucket         string
	Region         string
	Endpoint       string
	KeyPrefix      string
	ForcePathStyle bool
	AccessKey      string
	SecretKey      string
}

// FromEnv loads configuration from environment variables and applies defaults.
func FromEnv() Config {
	cfg := Config{
		Port:        getenv("APP_PORT", "8000"),
		BaseURL:     strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://127.0.0.1:8000"), "/"),
		StorageDir:  getenv("STORAGE_DIR", "data"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		Gemini: GeminiConfig{
			APIKey:            os.Getenv("GEMINI_API_KEY"),
			ImageModel:        getenv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
			JudgeModel:        getenv("GEMINI_JUDGE_MODEL", "gemini-2.5-flash"),
			MaxCallsPerMinute: getenvInt("GEMINI_MAX_CALLS_PER_MINUTE", 30),
		},
		Media: MediaConfig{
			Bucket:         os.Getenv("S3_BUCKET"),
			Region:         os.Getenv("S3_REGION"),
			Endpoint:       os.Getenv("S3_ENDPOINT"),
			KeyPrefix:      strings.Trim(os.Getenv("S3_KEY_PREFIX"), "/"),
			ForcePathStyle: getenvBool("S3_FORCE_PATH_STYLE", false),
			AccessKey:      os.Getenv("S3_ACCESS_KEY"),
			SecretKey:      os.Getenv("S3_SECRET_KEY"),
		},
	}

	return cfg
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func getenvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}

	return parsed
}

func getenvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
