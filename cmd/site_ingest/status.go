package main

import (
	"fmt"
	"time"

	"github.com/jonathan/site-ingest/internal/db"
	"github.com/jonathan/site-ingest/internal/observability"
	"github.com/jonathan/site-ingest/internal/pipeline"
	"github.com/jonathan/site-ingest/internal/types"
	"github.com/spf13/cobra"
)

type statusOptions struct {
	site   string
	failed bool
	pages  bool
	limit  int
	outDir string
}

func newStatusCmd(g *globalOptions) *cobra.Command {
	opts := &statusOptions{}
	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show a job, a site's recent jobs, pages or failed URLs, or all sites",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := ""
			if len(args) == 1 {
				jobID = args[0]
			}
			return runStatus(cmd, g, opts, jobID)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.site, "site", "", "Base URL of the site")
	f.BoolVar(&opts.failed, "failed", false, "List the site's failed URLs")
	f.BoolVar(&opts.pages, "pages", false, "List the site's stored pages")
	f.IntVar(&opts.limit, "limit", 5, "Number of recent jobs to show")
	f.StringVarP(&opts.outDir, "out", "o", "", "Read failed URLs from the JSON files in this directory")
	return cmd
}

func runStatus(cmd *cobra.Command, g *globalOptions, opts *statusOptions, jobID string) error {
	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	printer := observability.NewPrinter(cmd.OutOrStdout())

	if opts.outDir != "" {
		if !opts.failed || opts.site == "" {
			return fmt.Errorf("--out only supports --site with --failed")
		}
		return printFileFailures(cmd, printer, opts)
	}

	database, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if jobID == "" && opts.site == "" {
		sites, err := database.ListSites(ctx)
		if err != nil {
			return err
		}
		for _, s := range sites {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%d pages\n", s.ID, s.BaseURL, s.Name, s.PageCount)
		}
		return nil
	}

	if jobID != "" {
		job, err := database.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("job %s not found", jobID)
		}
		printer.PrintJob(job)
		return nil
	}

	site, err := siteByURL(cmd, database, opts.site)
	if err != nil {
		return err
	}

	if opts.failed {
		failed, err := database.ListFailedURLs(ctx, site.ID)
		if err != nil {
			return err
		}
		printer.PrintFailedURLs(failed)
		return nil
	}

	if opts.pages {
		pages, err := database.ListPages(ctx, site.ID)
		if err != nil {
			return err
		}
		for _, p := range pages {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d chunks\t%s\n", p.URL, p.ChunkCount, p.ScrapedAt.Format(time.RFC3339))
		}
		return nil
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %d pages\n", site.Name, site.BaseURL, site.PageCount)
	jobs, err := database.ListJobs(ctx, site.ID, opts.limit)
	if err != nil {
		return err
	}
	for i := range jobs {
		printer.PrintJob(&jobs[i])
	}
	return nil
}

func siteByURL(cmd *cobra.Command, database *db.DB, rawURL string) (*types.Site, error) {
	baseURL, err := parseBaseURL(rawURL)
	if err != nil {
		return nil, err
	}
	site, err := database.GetSiteByURL(cmd.Context(), baseURL)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, fmt.Errorf("site %s has never been ingested", baseURL)
	}
	return site, nil
}

func printFileFailures(cmd *cobra.Command, printer *observability.Printer, opts *statusOptions) error {
	baseURL, err := parseBaseURL(opts.site)
	if err != nil {
		return err
	}
	files, err := pipeline.OpenFileStore(opts.outDir)
	if err != nil {
		return err
	}
	site := files.SiteByURL(baseURL)
	if site == nil {
		return fmt.Errorf("site %s has never been ingested into %s", baseURL, opts.outDir)
	}
	failed, err := files.ListFailedURLs(cmd.Context(), site.ID)
	if err != nil {
		return err
	}
	printer.PrintFailedURLs(failed)
	return nil
}
