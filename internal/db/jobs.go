package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Scrape Job Methods
// -----------------------------------------------------------------------------

// CreateJob inserts a pending job for a site
func (db *DB) CreateJob(ctx context.Context, jobID string, siteID int64) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO scrape_jobs (id, site_id, status, current_task, started_at)
		 VALUES ($1, $2, $3, 'Queued', NOW())`,
		jobID, siteID, JobPending,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// ReportProgress updates the job counters and moves a pending job to running.
// Counters never move backwards.
func (db *DB) ReportProgress(ctx context.Context, jobID string, processed, total int, task string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE scrape_jobs SET
			status = CASE WHEN status = 'pending' THEN 'running' ELSE status END,
			pages_processed = GREATEST(pages_processed, $2),
			pages_total = GREATEST(pages_total, $3),
			current_task = $4
		 WHERE id = $1`,
		jobID, processed, total, task,
	)
	if err != nil {
		return fmt.Errorf("failed to report progress: %w", err)
	}
	return nil
}

// CompleteJob marks a job completed
func (db *DB) CompleteJob(ctx context.Context, jobID string, processed int) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE scrape_jobs SET
			status = $2,
			pages_processed = GREATEST(pages_processed, $3),
			current_task = 'Completed',
			completed_at = NOW()
		 WHERE id = $1`,
		jobID, JobCompleted, processed,
	)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// FailJob marks a job failed with a message
func (db *DB) FailJob(ctx context.Context, jobID string, message string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE scrape_jobs SET
			status = $2,
			error_message = $3,
			current_task = 'Failed',
			completed_at = NOW()
		 WHERE id = $1`,
		jobID, JobFailed, message,
	)
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID
func (db *DB) GetJob(ctx context.Context, jobID string) (*ScrapeJob, error) {
	var j ScrapeJob
	err := db.pool.QueryRow(ctx,
		`SELECT id, site_id, status, pages_total, pages_processed, current_task, error_message, started_at, completed_at
		 FROM scrape_jobs WHERE id = $1`,
		jobID,
	).Scan(&j.ID, &j.SiteID, &j.Status, &j.PagesTotal, &j.PagesProcessed, &j.CurrentTask, &j.ErrorMessage, &j.StartedAt, &j.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &j, nil
}

// ListJobs returns the most recent jobs for a site
func (db *DB) ListJobs(ctx context.Context, siteID int64, limit int) ([]ScrapeJob, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, site_id, status, pages_total, pages_processed, current_task, error_message, started_at, completed_at
		 FROM scrape_jobs WHERE site_id = $1
		 ORDER BY started_at DESC LIMIT $2`,
		siteID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []ScrapeJob
	for rows.Next() {
		var j ScrapeJob
		if err := rows.Scan(&j.ID, &j.SiteID, &j.Status, &j.PagesTotal, &j.PagesProcessed, &j.CurrentTask, &j.ErrorMessage, &j.StartedAt, &j.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
