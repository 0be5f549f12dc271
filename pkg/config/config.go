// Package config loads eventhint's runtime configuration from environment
// variables, grounded on the teacher's config/config.go
// DefaultConfig/loadFromEnv/Validate layering.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every environment variable named in spec.md §6.
type Config struct {
	DatabaseURL string
	RedisURL    string

	SecretKey                string
	Algorithm                string
	AccessTokenExpireMinutes int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIMaxTokens int

	OCRConfidenceThreshold float64
	MaxUploadSize          int64
	UploadDir              string

	EnableAutoApprove  bool
	EnableLLMFallback  bool
	EnableGoogleVision bool

	FrontendURL string
	CORSOrigins []string
}

// DefaultConfig returns the baseline configuration before environment
// variables are applied.
func DefaultConfig() *Config {
	return &Config{
		Algorithm:                "HS256",
		AccessTokenExpireMinutes: 60,
		OpenAIModel:              "gpt-4o-mini",
		OpenAIMaxTokens:          1024,
		OCRConfidenceThreshold:   0.6,
		MaxUploadSize:            25 * 1024 * 1024,
		UploadDir:                "./uploads",
		EnableAutoApprove:        true,
		EnableLLMFallback:        true,
		EnableGoogleVision:       false,
	}
}

// Load builds a Config from DefaultConfig, overridden by environment
// variables, then validates it.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	loadFromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("ALGORITHM"); v != "" {
		cfg.Algorithm = v
	}
	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AccessTokenExpireMinutes = n
		}
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.GoogleClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.GoogleClientSecret = v
	}
	if v := os.Getenv("GOOGLE_REDIRECT_URI"); v != "" {
		cfg.GoogleRedirectURI = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv("OPENAI_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OpenAIMaxTokens = n
		}
	}
	if v := os.Getenv("OCR_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.OCRConfidenceThreshold = f
		}
	}
	if v := os.Getenv("MAX_UPLOAD_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadSize = n
		}
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("ENABLE_AUTO_APPROVE"); v != "" {
		cfg.EnableAutoApprove = isTruthy(v)
	}
	if v := os.Getenv("ENABLE_LLM_FALLBACK"); v != "" {
		cfg.EnableLLMFallback = isTruthy(v)
	}
	if v := os.Getenv("ENABLE_GOOGLE_VISION"); v != "" {
		cfg.EnableGoogleVision = isTruthy(v)
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.FrontendURL = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = strings.Split(v, ",")
	}
}

func isTruthy(v string) bool {
	return v == "true" || v == "1"
}

// Validate enforces the invariants that must hold before the pipeline or
// sync engine can start.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("config: REDIS_URL is required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("config: SECRET_KEY is required")
	}
	if c.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("config: ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.EnableLLMFallback && c.OpenAIAPIKey == "" {
		return fmt.Errorf("config: OPENAI_API_KEY is required when ENABLE_LLM_FALLBACK is set")
	}
	if c.OCRConfidenceThreshold < 0 || c.OCRConfidenceThreshold > 1 {
		return fmt.Errorf("config: OCR_CONFIDENCE_THRESHOLD must be between 0 and 1")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_SIZE must be positive")
	}
	return nil
}

// AccessTokenExpiry returns AccessTokenExpireMinutes as a time.Duration.
func (c *Config) AccessTokenExpiry() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}
