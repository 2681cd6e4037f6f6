package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/site-ingest/internal/types"
)

// -----------------------------------------------------------------------------
// Site Methods
// -----------------------------------------------------------------------------

const siteColumns = `id, name, base_url, description, page_count, created_at`

func scanSite(row pgx.Row) (*types.Site, error) {
	var s types.Site
	if err := row.Scan(&s.ID, &s.Name, &s.BaseURL, &s.Description, &s.PageCount, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertSite returns the site for baseURL, creating it on first use.
// baseURL must already be normalized. Name and description are only set
// on creation.
func (db *DB) UpsertSite(ctx context.Context, baseURL, name, description string) (*types.Site, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("site base URL cannot be empty")
	}
	if name == "" {
		name = baseURL
	}

	site, err := scanSite(db.pool.QueryRow(ctx,
		`INSERT INTO sites (name, base_url, description)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (base_url) DO UPDATE SET updated_at = NOW()
		 RETURNING `+siteColumns,
		name, baseURL, description,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert site: %w", err)
	}
	return site, nil
}

// GetSiteByURL retrieves a site by its normalized base URL
func (db *DB) GetSiteByURL(ctx context.Context, baseURL string) (*types.Site, error) {
	site, err := scanSite(db.pool.QueryRow(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE base_url = $1`, baseURL))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return site, nil
}

// ListSites returns all sites ordered by creation time
func (db *DB) ListSites(ctx context.Context) ([]types.Site, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []types.Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, *s)
	}
	return sites, rows.Err()
}

// RefreshSitePageCount recomputes sites.page_count from site_pages
func (db *DB) RefreshSitePageCount(ctx context.Context, siteID int64) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`UPDATE sites
		 SET page_count = (SELECT COUNT(*) FROM site_pages WHERE site_id = $1), updated_at = NOW()
		 WHERE id = $1
		 RETURNING page_count`,
		siteID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to refresh page count: %w", err)
	}
	return count, nil
}
