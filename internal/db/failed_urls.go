package db

import (
	"context"
	"fmt"

	"github.com/jonathan/site-ingest/internal/types"
)

// -----------------------------------------------------------------------------
// Failed-URL Ledger Methods
// -----------------------------------------------------------------------------

// RecordFailedURL upserts a ledger entry, bumping attempts on repeat failures
func (db *DB) RecordFailedURL(ctx context.Context, siteID int64, pageURL, reason string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO failed_urls (site_id, url, reason, failed_at, attempts)
		 VALUES ($1, $2, $3, NOW(), 1)
		 ON CONFLICT (site_id, url) DO UPDATE SET
			reason = EXCLUDED.reason,
			failed_at = NOW(),
			attempts = failed_urls.attempts + 1`,
		siteID, pageURL, reason,
	)
	if err != nil {
		return fmt.Errorf("failed to record failed URL %s: %w", pageURL, err)
	}
	return nil
}

// ListFailedURLs returns a site's ledger entries, oldest failure first
func (db *DB) ListFailedURLs(ctx context.Context, siteID int64) ([]types.FailedURL, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT site_id, url, reason, failed_at, attempts
		 FROM failed_urls WHERE site_id = $1
		 ORDER BY failed_at, id`,
		siteID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed URLs: %w", err)
	}
	defer rows.Close()

	var failed []types.FailedURL
	for rows.Next() {
		var f types.FailedURL
		if err := rows.Scan(&f.SiteID, &f.URL, &f.Reason, &f.FailedAt, &f.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan failed URL: %w", err)
		}
		failed = append(failed, f)
	}
	return failed, rows.Err()
}

// ResolveFailedURL removes a ledger entry after the URL produced a page
func (db *DB) ResolveFailedURL(ctx context.Context, siteID int64, pageURL string) error {
	_, err := db.pool.Exec(ctx,
		`DELETE FROM failed_urls WHERE site_id = $1 AND url = $2`,
		siteID, pageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve failed URL %s: %w", pageURL, err)
	}
	return nil
}
