package types

import "time"

// RunSummary is the outcome of one ingestion run over a site.
type RunSummary struct {
	JobID      string          `json:"job_id"`
	SiteID     int64           `json:"site_id"`
	BaseURL    string          `json:"base_url"`
	Source     DiscoverySource `json:"source,omitempty"`
	Discovered int             `json:"discovered"`
	Disallowed int             `json:"disallowed"`
	Processed  int             `json:"processed"`
	LowValue   int             `json:"low_value"`
	Failed     int             `json:"failed"`
	Chunks     int             `json:"chunks"`
	Tokens     int             `json:"tokens"`
	Embedded   int             `json:"embedded"`
	Duration   time.Duration   `json:"duration"`
}
