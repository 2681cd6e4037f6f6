// Package pipeline orchestrates one ingestion job: discovery, robots gating,
// scraping, chunking, embedding and persistence.
package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/site-ingest/internal/chunking"
	"github.com/jonathan/site-ingest/internal/crawling"
	"github.com/jonathan/site-ingest/internal/embedding"
	"github.com/jonathan/site-ingest/internal/ingestion"
	"github.com/jonathan/site-ingest/internal/types"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoPages fails a job that produced no page at all.
	ErrNoPages = errors.New("no pages produced")
	// ErrPersistence fails a job when the store rejects a write.
	ErrPersistence = errors.New("persistence failed")
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	JobID     string `json:"job_id"`
	Task      string `json:"task"`
	URL       string `json:"url,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Options holds the run-level settings of a Pipeline.
type Options struct {
	MaxPages       int
	EmbedWithTitle bool
	OnProgress     ProgressCallback
}

// Deps are the collaborators a Pipeline is built from. Embedder and Ledger
// are optional.
type Deps struct {
	Discoverer URLDiscoverer
	Robots     crawling.RobotsGate
	Scraper    PageScraper
	Chunker    *chunking.Chunker
	Embedder   embedding.Embedder
	Store      PageStore
	Ledger     FailureLedger
	Progress   ProgressReporter
	Logger     logrus.FieldLogger
}

// Job identifies one run over a site.
type Job struct {
	ID   string
	Site types.Site
}

// NewJobID returns job_<unix-millis>_<first 8 hex of md5(baseURL)>.
func NewJobID(baseURL string, now time.Time) string {
	sum := md5.Sum([]byte(baseURL))
	return fmt.Sprintf("job_%d_%s", now.UnixMilli(), hex.EncodeToString(sum[:])[:8])
}

// Pipeline runs ingestion jobs. A Pipeline processes pages sequentially;
// independent sites should use independent Pipelines.
type Pipeline struct {
	deps Deps
	opts Options
}

// New creates a pipeline.
func New(deps Deps, opts Options) *Pipeline {
	if deps.Chunker == nil {
		deps.Chunker = chunking.NewChunker(chunking.DefaultConfig())
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Progress == nil {
		deps.Progress = LogReporter{Logger: deps.Logger}
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = crawling.DefaultMaxPages
	}
	return &Pipeline{deps: deps, opts: opts}
}

// Run discovers the site's URLs and processes each one. It returns
// ErrNoPages when nothing was stored, an ErrPersistence-wrapped error when
// the store fails, or the context's error when cancelled. The summary is
// returned in every case.
func (p *Pipeline) Run(ctx context.Context, job Job) (*types.RunSummary, error) {
	start := time.Now()
	summary := &types.RunSummary{JobID: job.ID, SiteID: job.Site.ID, BaseURL: job.Site.BaseURL}
	log := p.deps.Logger.WithField("job_id", job.ID)

	p.report(ctx, job, 0, 0, "Discovering URLs", "", "")
	urls, err := p.deps.Discoverer.Discover(ctx, job.Site.BaseURL, p.opts.MaxPages)
	if err != nil {
		summary.Duration = time.Since(start)
		return summary, p.fail(ctx, job, fmt.Errorf("discovery aborted: %w", err))
	}
	summary.Discovered = len(urls)
	if len(urls) == 0 {
		summary.Duration = time.Since(start)
		return summary, p.fail(ctx, job, fmt.Errorf("%w: no URLs discovered for %s", ErrNoPages, job.Site.BaseURL))
	}
	summary.Source = urls[0].Source
	log.WithField("count", len(urls)).WithField("source", summary.Source).Info("discovery finished")

	err = p.process(ctx, job, urls, summary)
	summary.Duration = time.Since(start)
	if err != nil {
		return summary, p.fail(ctx, job, err)
	}
	if summary.Processed == 0 {
		return summary, p.fail(ctx, job, fmt.Errorf("%w: all %d discovered URLs failed or were filtered", ErrNoPages, len(urls)))
	}

	p.complete(ctx, job, summary)
	return summary, nil
}

// RetryFailed re-runs page processing for exactly the URLs in the site's
// failed-URL ledger. URLs that now succeed are resolved; those that fail
// again have their attempt count bumped.
func (p *Pipeline) RetryFailed(ctx context.Context, job Job) (*types.RunSummary, error) {
	if p.deps.Ledger == nil {
		return nil, fmt.Errorf("retry requires a failed-URL ledger")
	}
	start := time.Now()
	summary := &types.RunSummary{JobID: job.ID, SiteID: job.Site.ID, BaseURL: job.Site.BaseURL}

	p.report(ctx, job, 0, 0, "Loading failed URLs", "", "")
	failed, err := p.deps.Ledger.ListFailedURLs(ctx, job.Site.ID)
	if err != nil {
		summary.Duration = time.Since(start)
		return summary, p.fail(ctx, job, fmt.Errorf("%w: %v", ErrPersistence, err))
	}

	urls := make([]types.DiscoveredURL, len(failed))
	for i, f := range failed {
		urls[i] = types.DiscoveredURL{URL: f.URL}
	}
	summary.Discovered = len(urls)

	err = p.process(ctx, job, urls, summary)
	summary.Duration = time.Since(start)
	if err != nil {
		return summary, p.fail(ctx, job, err)
	}

	p.complete(ctx, job, summary)
	return summary, nil
}

// process handles urls in order. Per-URL failures are counted and logged;
// only cancellation and persistence errors are returned.
func (p *Pipeline) process(ctx context.Context, job Job, urls []types.DiscoveredURL, summary *types.RunSummary) error {
	total := len(urls)
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("ingestion cancelled after %d of %d URLs: %w", i, total, err)
		}

		outcome, err := p.handle(ctx, job, u.URL, summary)
		if err != nil {
			return err
		}
		pagesTotal.WithLabelValues(outcome).Inc()
		p.report(ctx, job, i+1, total, fmt.Sprintf("Processed %d/%d pages", i+1, total), u.URL, outcome)
	}
	return nil
}

// handle runs one URL through robots, scraping, chunking, embedding and
// persistence, returning its outcome label.
func (p *Pipeline) handle(ctx context.Context, job Job, pageURL string, summary *types.RunSummary) (string, error) {
	log := p.deps.Logger.WithField("job_id", job.ID).WithField("url", pageURL)

	if p.deps.Robots != nil && !p.deps.Robots.Allowed(ctx, job.Site.BaseURL, pageURL) {
		log.Debug("disallowed by robots.txt")
		summary.Disallowed++
		return outcomeDisallowed, nil
	}

	start := time.Now()
	page, err := p.deps.Scraper.ScrapePage(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ingestion cancelled at %s: %w", pageURL, ctx.Err())
		}
		if errors.Is(err, ingestion.ErrLowValue) {
			log.Debug("skipped low-value page")
			summary.LowValue++
			return outcomeLowValue, p.resolve(ctx, job, pageURL)
		}
		log.WithError(err).Warn("page failed")
		summary.Failed++
		if p.deps.Ledger != nil {
			if lerr := p.deps.Ledger.RecordFailedURL(ctx, job.Site.ID, pageURL, failureReason(err)); lerr != nil {
				return "", fmt.Errorf("%w: %v", ErrPersistence, lerr)
			}
		}
		return outcomeFailed, nil
	}

	chunks := p.deps.Chunker.ChunkPage(page)
	if p.deps.Embedder != nil {
		if err := embedding.EmbedChunks(ctx, p.deps.Embedder, chunks, p.opts.EmbedWithTitle); err != nil {
			return "", fmt.Errorf("embedding cancelled at %s: %w", pageURL, err)
		}
		summary.Embedded += countEmbedded(chunks)
	}

	if _, err := p.deps.Store.UpsertPageWithChunks(ctx, job.Site.ID, page, chunks); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrPersistence, pageURL, err)
	}
	if err := p.resolve(ctx, job, pageURL); err != nil {
		return "", err
	}

	stats := chunking.ComputeStats(chunks)
	summary.Processed++
	summary.Chunks += stats.TotalChunks
	summary.Tokens += stats.TotalTokens
	chunksTotal.Add(float64(stats.TotalChunks))
	pageDuration.Observe(time.Since(start).Seconds())

	log.WithFields(logrus.Fields{
		"chunks":     stats.TotalChunks,
		"tokens":     stats.TotalTokens,
		"max_tokens": stats.MaxTokens,
	}).Debug("page stored")
	return outcomeStored, nil
}

func (p *Pipeline) resolve(ctx context.Context, job Job, pageURL string) error {
	if p.deps.Ledger == nil {
		return nil
	}
	if err := p.deps.Ledger.ResolveFailedURL(ctx, job.Site.ID, pageURL); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// report forwards progress to the reporter and the callback. Reporter
// errors are logged and never stop the job.
func (p *Pipeline) report(ctx context.Context, job Job, processed, total int, task, pageURL, outcome string) {
	if err := p.deps.Progress.ReportProgress(ctx, job.ID, processed, total, task); err != nil {
		p.deps.Logger.WithField("job_id", job.ID).WithError(err).Warn("progress report failed")
	}
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(ProgressEvent{
			JobID:     job.ID,
			Task:      task,
			URL:       pageURL,
			Outcome:   outcome,
			Processed: processed,
			Total:     total,
		})
	}
}

func (p *Pipeline) complete(ctx context.Context, job Job, summary *types.RunSummary) {
	if counter, ok := p.deps.Store.(pageCounter); ok {
		if _, err := counter.RefreshSitePageCount(ctx, job.Site.ID); err != nil {
			p.deps.Logger.WithField("job_id", job.ID).WithError(err).Warn("page count refresh failed")
		}
	}
	if err := p.deps.Progress.CompleteJob(ctx, job.ID, summary.Discovered); err != nil {
		p.deps.Logger.WithField("job_id", job.ID).WithError(err).Warn("completion report failed")
	}
	jobsTotal.WithLabelValues("completed").Inc()
}

// fail reports err as the job's terminal failure and returns it.
func (p *Pipeline) fail(ctx context.Context, job Job, err error) error {
	// a cancelled job still needs its terminal state recorded
	reportCtx := context.WithoutCancel(ctx)
	if rerr := p.deps.Progress.FailJob(reportCtx, job.ID, err.Error()); rerr != nil {
		p.deps.Logger.WithField("job_id", job.ID).WithError(rerr).Warn("failure report failed")
	}
	jobsTotal.WithLabelValues("failed").Inc()
	return err
}

// failureReason is the ledger text for a per-URL failure.
func failureReason(err error) string {
	var statusErr *ingestion.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("HTTP %d", statusErr.StatusCode)
	}
	return err.Error()
}

func countEmbedded(chunks []types.ContentChunk) int {
	n := 0
	for _, c := range chunks {
		if c.Embedding != nil && !embedding.IsZero(c.Embedding) {
			n++
		}
	}
	return n
}
