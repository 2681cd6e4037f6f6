package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"rate_limit": 2.5,
		"max_pages": 50,
		"chunk_size": 200,
		"chunk_overlap": 20,
		"test_mode": true,
		"log_format": "json"
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, 50, cfg.MaxPages)
	assert.Equal(t, 200, cfg.ChunkSize)
	assert.Equal(t, 20, cfg.ChunkOverlap)
	assert.True(t, cfg.TestMode)
	assert.Equal(t, "json", cfg.LogFormat)

	// untouched keys keep defaults
	assert.Equal(t, 30, cfg.RequestTimeout)
	assert.Equal(t, 768, cfg.EmbeddingDimension)
	assert.Equal(t, 5, cfg.TestURLLimit)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1.0, cfg.RateLimit)
	assert.Equal(t, 1000, cfg.MaxPages)
	assert.Equal(t, 400, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 100, cfg.MinContentLength)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Empty(t, cfg.EmbeddingURL)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, "rate_limit"},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, "request_timeout"},
		{"empty user agent", func(c *Config) { c.UserAgent = "" }, "user_agent"},
		{"zero max pages", func(c *Config) { c.MaxPages = 0 }, "max_pages"},
		{"overlap not below size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, "chunk_overlap"},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -5 }, "chunk_overlap"},
		{"bad embedding url", func(c *Config) { c.EmbeddingURL = "not a url" }, "embedding_url"},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"deep sitemap", func(c *Config) { c.SitemapMaxDepth = 50 }, "sitemap_max_depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "'"+tt.field+"'")
		})
	}
}

func TestValidate_NormalizesLogCase(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "DEBUG"
	cfg.LogFormat = "JSON"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT", "0.5")
	t.Setenv("MAX_PAGES", "25")
	t.Setenv("TEST_MODE", "true")
	t.Setenv("DATABASE_URL", "postgres://localhost/ingest")
	t.Setenv("CHUNK_SIZE", "not-a-number")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, 0.5, cfg.RateLimit)
	assert.Equal(t, 25, cfg.MaxPages)
	assert.True(t, cfg.TestMode)
	assert.Equal(t, "postgres://localhost/ingest", cfg.DatabaseURL)
	// unparseable values fall back
	assert.Equal(t, 400, cfg.ChunkSize)
}

func TestURLLimit(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 0, cfg.URLLimit())
	cfg.TestMode = true
	assert.Equal(t, 5, cfg.URLLimit())
}

func TestJSONName(t *testing.T) {
	assert.Equal(t, "use_browser", jsonName("UseBrowser"))
	assert.Equal(t, "chunk_size", jsonName("ChunkSize"))
	assert.Equal(t, "Missing", jsonName("Missing"))
}
