package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/site-ingest/internal/observability"
	"github.com/spf13/cobra"
)

func newDiscoverCmd(g *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "discover <url>",
		Short: "List the URLs ingest would process, without scraping them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, g, asJSON, args[0])
		},
	}
	f := cmd.Flags()
	f.BoolVar(&asJSON, "json", false, "Print the URLs as a JSON array")
	f.Int("max-pages", 0, "Maximum pages to discover")
	f.Int("sitemap-max-depth", 0, "Maximum sitemap index nesting")
	f.Bool("test-mode", false, "Truncate the list to test-url-limit URLs")
	f.Int("test-url-limit", 0, "URL limit in test mode")
	return cmd
}

func runDiscover(cmd *cobra.Command, g *globalOptions, asJSON bool, rawURL string) error {
	baseURL, err := parseBaseURL(rawURL)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	urls, err := newRuntime(cfg, newLogger(cfg)).discoverer.Discover(ctx, baseURL, cfg.MaxPages)
	if err != nil {
		return fmt.Errorf("discovery aborted: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(urls)
	}
	if g.verbose {
		observability.NewPrinter(out).PrintDiscovered(urls)
		return nil
	}
	for _, u := range urls {
		_, _ = fmt.Fprintf(out, "%s\t%s\n", u.Source, u.URL)
	}
	return nil
}
