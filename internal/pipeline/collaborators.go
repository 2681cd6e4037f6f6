package pipeline

import (
	"context"

	"github.com/jonathan/site-ingest/internal/types"
	"github.com/sirupsen/logrus"
)

// URLDiscoverer resolves the URL set of a site.
type URLDiscoverer interface {
	Discover(ctx context.Context, baseURL string, maxPages int) ([]types.DiscoveredURL, error)
}

// PageScraper fetches and extracts one page.
type PageScraper interface {
	ScrapePage(ctx context.Context, pageURL string) (*types.Page, error)
}

// PageStore is the persistence strategy. A page and its chunks must be
// written atomically; re-storing a (site, url) pair replaces its content
// and its chunks.
type PageStore interface {
	UpsertPageWithChunks(ctx context.Context, siteID int64, page *types.Page, chunks []types.ContentChunk) (int64, error)
}

// FailureLedger records discovered URLs that never yielded a page.
type FailureLedger interface {
	RecordFailedURL(ctx context.Context, siteID int64, pageURL, reason string) error
	ListFailedURLs(ctx context.Context, siteID int64) ([]types.FailedURL, error)
	ResolveFailedURL(ctx context.Context, siteID int64, pageURL string) error
}

// ProgressReporter receives job-status updates. The pipeline only reports;
// it never reads job state back.
type ProgressReporter interface {
	ReportProgress(ctx context.Context, jobID string, processed, total int, task string) error
	CompleteJob(ctx context.Context, jobID string, processed int) error
	FailJob(ctx context.Context, jobID string, message string) error
}

// pageCounter is implemented by stores that maintain a per-site page count.
type pageCounter interface {
	RefreshSitePageCount(ctx context.Context, siteID int64) (int, error)
}

// LogReporter is a ProgressReporter that only logs. It is used when no
// job-status store is configured.
type LogReporter struct {
	Logger logrus.FieldLogger
}

// ReportProgress logs the counters at debug level.
func (r LogReporter) ReportProgress(_ context.Context, jobID string, processed, total int, task string) error {
	r.logger().WithFields(logrus.Fields{
		"job_id":    jobID,
		"processed": processed,
		"total":     total,
	}).Debug(task)
	return nil
}

// CompleteJob logs job completion.
func (r LogReporter) CompleteJob(_ context.Context, jobID string, processed int) error {
	r.logger().WithField("job_id", jobID).WithField("processed", processed).Info("job completed")
	return nil
}

// FailJob logs job failure.
func (r LogReporter) FailJob(_ context.Context, jobID string, message string) error {
	r.logger().WithField("job_id", jobID).Error(message)
	return nil
}

func (r LogReporter) logger() logrus.FieldLogger {
	if r.Logger == nil {
		return logrus.StandardLogger()
	}
	return r.Logger
}
