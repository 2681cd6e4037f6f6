// Package crawling discovers the pages of a site, from its sitemaps when it
// publishes any and by a breadth-first link crawl when it does not.
package crawling

import "fmt"

// CrawlError represents a general crawling failure
type CrawlError struct {
	Message string
	Cause   error
}

func (e *CrawlError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("crawl error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("crawl error: %s", e.Message)
}

func (e *CrawlError) Unwrap() error {
	return e.Cause
}

// LinkExtractionError represents a failure in extracting links from HTML
type LinkExtractionError struct {
	Message string
	Cause   error
}

func (e *LinkExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("link extraction error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("link extraction error: %s", e.Message)
}

func (e *LinkExtractionError) Unwrap() error {
	return e.Cause
}

// SitemapError represents a sitemap document that could not be fetched or parsed
type SitemapError struct {
	URL     string
	Message string
	Cause   error
}

func (e *SitemapError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sitemap error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("sitemap error for %s: %s", e.URL, e.Message)
}

func (e *SitemapError) Unwrap() error {
	return e.Cause
}
