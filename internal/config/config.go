package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultMaxUploadBytes bounds CSV uploads accepted by the HTTP service.
const DefaultMaxUploadBytes int64 = 100 << 20

// Config holds application configuration
type Config struct {
	Port           string
	LogLevel       string
	HistoryDB      string
	CacheDir       string
	MaxUploadBytes int64
	ExcludedFields []string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
	R2Endpoint        string
	PresignTTL        time.Duration
}

// Load reads envFile (or ./.env when empty) and then the environment.
// A missing default .env is fine; a missing explicit envFile is an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		Port:           getEnv("PORT", "3000"),
		LogLevel:       getEnv("LOG_LEVEL", ""),
		HistoryDB:      getEnv("HISTORY_DB", filepath.Join(home, ".agentlog-viewer", "history.db")),
		CacheDir:       getEnv("CACHE_DIR", filepath.Join(home, ".agentlog-viewer-cache")),
		MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		ExcludedFields: SplitList(getEnv("EXCLUDED_FIELDS", "")),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       strings.TrimRight(getEnv("R2_PUBLIC_URL", ""), "/"),
		R2Endpoint:        getEnv("R2_ENDPOINT", ""),
		PresignTTL:        getEnvAsDuration("PRESIGN_TTL", 15*time.Minute),
	}, nil
}

// R2Enabled reports whether enough R2 settings are present to talk to a bucket
func (c *Config) R2Enabled() bool {
	return c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != "" &&
		(c.R2AccountID != "" || c.R2Endpoint != "")
}

// Endpoint returns the S3-compatible endpoint for the configured account
func (c *Config) Endpoint() string {
	if c.R2Endpoint != "" {
		return c.R2Endpoint
	}
	if c.R2AccountID == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2AccountID)
}

// SplitList splits a comma separated list, dropping blanks
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
