package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/site-ingest/internal/observability"
	"github.com/jonathan/site-ingest/internal/pipeline"
	"github.com/jonathan/site-ingest/internal/types"
	"github.com/spf13/cobra"
)

func newRetryCmd(g *globalOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "retry-failed <url>",
		Short: "Re-scrape the URLs recorded as failed for a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetry(cmd, g, outDir, args[0])
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Use the JSON files in this directory instead of Postgres")
	addPipelineFlags(cmd)
	return cmd
}

func runRetry(cmd *cobra.Command, g *globalOptions, outDir, rawURL string) (err error) {
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

	be, err := openBackend(ctx, cfg, outDir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := be.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var site *types.Site
	if be.db != nil {
		site, err = be.db.GetSiteByURL(ctx, baseURL)
		if err != nil {
			return err
		}
	} else {
		site = be.files.SiteByURL(baseURL)
	}
	if site == nil {
		return fmt.Errorf("site %s has never been ingested", baseURL)
	}

	job := pipeline.Job{ID: pipeline.NewJobID(site.BaseURL, time.Now()), Site: *site}
	if err := be.startJob(ctx, job); err != nil {
		return err
	}

	summary, runErr := newRuntime(cfg, logger).pipeline(be, nil).RetryFailed(ctx, job)
	observability.NewPrinter(cmd.OutOrStdout()).PrintRunSummary(summary)
	return ingestError(runErr)
}
