package types

import "time"

// DiscoverySource tags how a URL was found.
type DiscoverySource string

const (
	// SourceSitemap marks URLs taken from a sitemap or sitemap index
	SourceSitemap DiscoverySource = "sitemap"
	// SourceCrawl marks URLs found by the breadth-first fallback crawl
	SourceCrawl DiscoverySource = "crawl"
)

// Site is the identity anchor for a crawl target.
type Site struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	BaseURL     string    `json:"base_url"`
	Description string    `json:"description,omitempty"`
	PageCount   int       `json:"page_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// DiscoveredURL is a normalized, same-domain URL and where it came from.
type DiscoveredURL struct {
	URL    string          `json:"url"`
	Source DiscoverySource `json:"source"`
}

// Header is one h1-h6 element found on a page.
type Header struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Page is the extracted result of fetching one URL.
type Page struct {
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Summary  string    `json:"summary"`
	Content  string    `json:"content"`
	Headers  []Header  `json:"headers"`
	Metadata *Metadata `json:"metadata"`
}

// ContentChunk is one bounded, overlap-linked segment of a page's content.
type ContentChunk struct {
	ChunkNumber int       `json:"chunk_number"` // 1-based, contiguous within a page
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Content     string    `json:"content"`
	TokenCount  int       `json:"token_count"`
	Metadata    *Metadata `json:"metadata"`
	// OverlapWords is the number of leading words copied from the previous chunk.
	OverlapWords int `json:"overlap_words"`
	// Embedding is filled by the embedding collaborator; nil when embedding is disabled.
	Embedding []float32 `json:"-"`
}

// FailedURL is a discovered URL that never yielded a Page.
type FailedURL struct {
	SiteID   int64     `json:"site_id"`
	URL      string    `json:"url"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
	Attempts int       `json:"attempts"`
}
