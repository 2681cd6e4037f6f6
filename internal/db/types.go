package db

import "time"

// Job status values stored in scrape_jobs.status
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// ScrapeJob is the externally polled status record of one ingestion run
type ScrapeJob struct {
	ID             string     `json:"id"`
	SiteID         int64      `json:"site_id"`
	Status         string     `json:"status"`
	PagesTotal     int        `json:"pages_total"`
	PagesProcessed int        `json:"pages_processed"`
	CurrentTask    string     `json:"current_task"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// StoredPage is a site_pages row without its content
type StoredPage struct {
	ID         int64     `json:"id"`
	SiteID     int64     `json:"site_id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	ChunkCount int       `json:"chunk_count"`
	ScrapedAt  time.Time `json:"scraped_at"`
}
