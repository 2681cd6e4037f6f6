package main

import (
	"github.com/jonathan/site-ingest/internal/config"
	"github.com/jonathan/site-ingest/internal/observability"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// loadConfig layers defaults, the optional config file, the environment and
// finally any flag the user set explicitly.
func loadConfig(cmd *cobra.Command, g *globalOptions) (*config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		loaded, err := config.LoadConfig(g.configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	cfg.ApplyEnv()
	applyFlags(cmd.Flags(), &cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyFlags copies changed flags into cfg. Flags a command does not
// define are never changed.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) {
	overrideFloat(fs, "rate-limit", &cfg.RateLimit)
	overrideInt(fs, "timeout", &cfg.RequestTimeout)
	overrideString(fs, "user-agent", &cfg.UserAgent)
	overrideBool(fs, "use-browser", &cfg.UseBrowser)
	overrideInt(fs, "max-pages", &cfg.MaxPages)
	overrideInt(fs, "sitemap-max-depth", &cfg.SitemapMaxDepth)
	overrideBool(fs, "test-mode", &cfg.TestMode)
	overrideInt(fs, "test-url-limit", &cfg.TestURLLimit)
	overrideInt(fs, "min-content-length", &cfg.MinContentLength)
	overrideInt(fs, "chunk-size", &cfg.ChunkSize)
	overrideInt(fs, "chunk-overlap", &cfg.ChunkOverlap)
	overrideString(fs, "database-url", &cfg.DatabaseURL)
	overrideString(fs, "embedding-url", &cfg.EmbeddingURL)
	overrideString(fs, "embedding-model", &cfg.EmbeddingModel)
	overrideInt(fs, "embedding-dimension", &cfg.EmbeddingDimension)
	overrideBool(fs, "embed-with-title", &cfg.EmbedWithTitle)
	overrideString(fs, "log-level", &cfg.LogLevel)
	overrideString(fs, "log-format", &cfg.LogFormat)
}

func overrideString(fs *pflag.FlagSet, name string, dst *string) {
	if fs.Changed(name) {
		if v, err := fs.GetString(name); err == nil {
			*dst = v
		}
	}
}

func overrideInt(fs *pflag.FlagSet, name string, dst *int) {
	if fs.Changed(name) {
		if v, err := fs.GetInt(name); err == nil {
			*dst = v
		}
	}
}

func overrideFloat(fs *pflag.FlagSet, name string, dst *float64) {
	if fs.Changed(name) {
		if v, err := fs.GetFloat64(name); err == nil {
			*dst = v
		}
	}
}

func overrideBool(fs *pflag.FlagSet, name string, dst *bool) {
	if fs.Changed(name) {
		if v, err := fs.GetBool(name); err == nil {
			*dst = v
		}
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	return observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
}
