// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds every tunable of an ingestion run. Values are layered:
// Default, then an optional JSON file, then environment variables, then
// CLI flags.
type Config struct {
	// Fetching
	RateLimit      float64 `json:"rate_limit" validate:"gte=0"`      // Requests per second across all fetches; 0 disables throttling
	RequestTimeout int     `json:"request_timeout" validate:"gt=0"`  // Per-request timeout in seconds
	UserAgent      string  `json:"user_agent" validate:"required"`   // Sent on every request and matched against robots.txt
	UseBrowser     bool    `json:"use_browser,omitempty"`            // Re-render thin pages with headless Chrome

	// Discovery
	MaxPages        int  `json:"max_pages" validate:"gte=1"`
	SitemapMaxDepth int  `json:"sitemap_max_depth" validate:"gte=1,lte=20"`
	TestMode        bool `json:"test_mode,omitempty"`
	TestURLLimit    int  `json:"test_url_limit" validate:"gte=1"`

	// Extraction and chunking
	MinContentLength int `json:"min_content_length" validate:"gte=0"`
	ChunkSize        int `json:"chunk_size" validate:"gte=1"`
	ChunkOverlap     int `json:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`

	// Collaborators
	DatabaseURL          string `json:"database_url,omitempty"`
	EmbeddingURL         string `json:"embedding_url,omitempty" validate:"omitempty,url"`
	EmbeddingModel       string `json:"embedding_model,omitempty"`
	EmbeddingAPIKey      string `json:"embedding_api_key,omitempty"`
	EmbeddingDimension   int    `json:"embedding_dimension" validate:"gte=1"`
	EmbeddingConcurrency int    `json:"embedding_concurrency" validate:"gte=1"`
	EmbedWithTitle       bool   `json:"embed_with_title,omitempty"`

	// Logging
	LogLevel  string `json:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat string `json:"log_format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		RateLimit:            1.0,
		RequestTimeout:       30,
		UserAgent:            "SiteIngestBot/1.0 (+https://github.com/jonathan/site-ingest)",
		MaxPages:             1000,
		SitemapMaxDepth:      5,
		TestURLLimit:         5,
		MinContentLength:     100,
		ChunkSize:            400,
		ChunkOverlap:         50,
		EmbeddingModel:       "BAAI/bge-base-en-v1.5",
		EmbeddingDimension:   768,
		EmbeddingConcurrency: 4,
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// LoadConfig loads configuration from a JSON file on top of Default.
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() {
	c.RateLimit = getEnvFloat("RATE_LIMIT", c.RateLimit)
	c.RequestTimeout = getEnvInt("REQUEST_TIMEOUT", c.RequestTimeout)
	c.UserAgent = getEnvString("USER_AGENT", c.UserAgent)
	c.UseBrowser = getEnvBool("USE_BROWSER", c.UseBrowser)
	c.MaxPages = getEnvInt("MAX_PAGES", c.MaxPages)
	c.SitemapMaxDepth = getEnvInt("SITEMAP_MAX_DEPTH", c.SitemapMaxDepth)
	c.TestMode = getEnvBool("TEST_MODE", c.TestMode)
	c.TestURLLimit = getEnvInt("TEST_URL_LIMIT", c.TestURLLimit)
	c.MinContentLength = getEnvInt("MIN_CONTENT_LENGTH", c.MinContentLength)
	c.ChunkSize = getEnvInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", c.ChunkOverlap)
	c.DatabaseURL = getEnvString("DATABASE_URL", c.DatabaseURL)
	c.EmbeddingURL = getEnvString("EMBEDDING_URL", c.EmbeddingURL)
	c.EmbeddingModel = getEnvString("EMBEDDING_MODEL", c.EmbeddingModel)
	c.EmbeddingAPIKey = getEnvString("EMBEDDING_API_KEY", c.EmbeddingAPIKey)
	c.EmbeddingDimension = getEnvInt("EMBEDDING_DIMENSION", c.EmbeddingDimension)
	c.EmbeddingConcurrency = getEnvInt("EMBEDDING_CONCURRENCY", c.EmbeddingConcurrency)
	c.EmbedWithTitle = getEnvBool("EMBED_WITH_TITLE", c.EmbedWithTitle)
	c.LogLevel = getEnvString("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvString("LOG_FORMAT", c.LogFormat)
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)

	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("config error: '%s' failed '%s' (value %v)", jsonName(fe.StructField()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// Timeout returns RequestTimeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// URLLimit returns the test-mode discovery limit, or 0 when test mode is off.
func (c *Config) URLLimit() int {
	if !c.TestMode {
		return 0
	}
	return c.TestURLLimit
}
