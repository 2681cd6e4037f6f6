// Package main provides the site_ingest CLI: discover, scrape, chunk and
// persist a website's content for retrieval.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:           "site_ingest",
		Short:         "Website ingestion pipeline for retrieval-augmented search",
		Long:          "site_ingest discovers the pages of a website through its sitemap or a bounded crawl, extracts their main text, splits it into overlapping token-bounded chunks and stores pages and chunks in Postgres or JSON files.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Path to a JSON config file")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Print per-page progress and summaries")
	pf.String("log-level", "", "Log level: trace, debug, info, warn, error")
	pf.String("log-format", "", "Log format: text or json")
	pf.String("database-url", "", "Postgres connection string (overrides DATABASE_URL)")
	pf.Float64("rate-limit", 0, "Maximum requests per second (0 disables throttling)")
	pf.String("user-agent", "", "User-Agent sent on every request and matched against robots.txt")
	pf.Int("timeout", 0, "Per-request timeout in seconds")

	rootCmd.AddCommand(
		newIngestCmd(g),
		newDiscoverCmd(g),
		newRetryCmd(g),
		newStatusCmd(g),
		newMigrateCmd(g),
		newChunkCmd(g),
	)
	return rootCmd
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
