package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/site-ingest/internal/observability"
	"github.com/jonathan/site-ingest/internal/pipeline"
	"github.com/spf13/cobra"
)

type ingestOptions struct {
	name        string
	description string
	outDir      string
	metricsAddr string
}

func newIngestCmd(g *globalOptions) *cobra.Command {
	opts := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest <url>",
		Short: "Discover, scrape, chunk and store a website",
		Long:  "Discovers the pages of a site from its sitemap (falling back to a breadth-first crawl), scrapes each allowed page, chunks its text and stores pages and chunks. Pages that fail to fetch are recorded for retry-failed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, g, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.name, "name", "", "Display name of the site (default: the base URL)")
	f.StringVar(&opts.description, "description", "", "Optional site description")
	f.StringVarP(&opts.outDir, "out", "o", "", "Write JSON files to this directory instead of Postgres")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running (e.g. :9090)")
	addPipelineFlags(cmd)
	return cmd
}

// addPipelineFlags registers the flags shared by ingest and retry-failed.
func addPipelineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("max-pages", 0, "Maximum pages to discover")
	f.Int("sitemap-max-depth", 0, "Maximum sitemap index nesting")
	f.Bool("test-mode", false, "Only process the first test-url-limit discovered URLs")
	f.Int("test-url-limit", 0, "URL limit in test mode")
	f.Int("min-content-length", 0, "Pages with less extracted text are skipped")
	f.Int("chunk-size", 0, "Maximum estimated tokens per chunk")
	f.Int("chunk-overlap", 0, "Estimated tokens repeated from the previous chunk")
	f.Bool("use-browser", false, "Re-render pages with little text in headless Chrome")
	f.String("embedding-url", "", "OpenAI-compatible embeddings endpoint; embedding is skipped when empty")
	f.String("embedding-model", "", "Embedding model name")
	f.Int("embedding-dimension", 0, "Embedding vector dimension")
	f.Bool("embed-with-title", false, "Prefix chunk titles to the embedded text")
}

func runIngest(cmd *cobra.Command, g *globalOptions, opts *ingestOptions, rawURL string) (err error) {
	baseURL, err := parseBaseURL(rawURL)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.metricsAddr != "" {
		serveMetrics(ctx, opts.metricsAddr, logger)
	}

	be, err := openBackend(ctx, cfg, opts.outDir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := be.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	site, err := be.sites.UpsertSite(ctx, baseURL, opts.name, opts.description)
	if err != nil {
		return err
	}
	job := pipeline.Job{ID: pipeline.NewJobID(site.BaseURL, time.Now()), Site: *site}
	if err := be.startJob(ctx, job); err != nil {
		return err
	}
	logger.WithField("job_id", job.ID).WithField("base_url", site.BaseURL).Info("ingestion started")

	out := cmd.OutOrStdout()
	var onProgress pipeline.ProgressCallback
	if g.verbose {
		onProgress = func(e pipeline.ProgressEvent) {
			if e.URL != "" {
				_, _ = fmt.Fprintf(out, "[%d/%d] %-10s %s\n", e.Processed, e.Total, e.Outcome, e.URL)
			}
		}
	}

	summary, runErr := newRuntime(cfg, logger).pipeline(be, onProgress).Run(ctx, job)
	observability.NewPrinter(out).PrintRunSummary(summary)
	return ingestError(runErr)
}

// ingestError adds a user-facing hint to job-fatal errors.
func ingestError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("interrupted, pages stored so far were kept: %w", err)
	case errors.Is(err, pipeline.ErrNoPages):
		return fmt.Errorf("ingestion failed: %w", err)
	default:
		return err
	}
}
