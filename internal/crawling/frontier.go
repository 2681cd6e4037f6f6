package crawling

import (
	"context"
	"strings"

	"github.com/jonathan/site-ingest/internal/fetch"
	"github.com/jonathan/site-ingest/internal/ingestion"
	"github.com/jonathan/site-ingest/internal/types"
	"github.com/sirupsen/logrus"
)

// DefaultMaxPages caps a fallback crawl when no limit is given.
const DefaultMaxPages = 1000

// RobotsGate decides whether a URL may be fetched.
type RobotsGate interface {
	Allowed(ctx context.Context, baseURL, targetURL string) bool
}

// FrontierCrawler discovers pages by following same-domain links breadth-first.
type FrontierCrawler struct {
	fetcher fetch.Fetcher
	robots  RobotsGate
	logger  logrus.FieldLogger
}

// NewFrontierCrawler creates a crawler. A nil robots gate allows every URL.
func NewFrontierCrawler(fetcher fetch.Fetcher, robots RobotsGate, logger logrus.FieldLogger) *FrontierCrawler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FrontierCrawler{fetcher: fetcher, robots: robots, logger: logger}
}

// Crawl walks the site from baseURL in BFS order and returns up to maxPages
// URLs that answered 200, in the order they were fetched. Fetch failures and
// non-200 responses are logged and skipped. Cancellation is checked before
// each frontier pop; on cancellation the URLs found so far are returned with
// ctx's error.
func (c *FrontierCrawler) Crawl(ctx context.Context, baseURL string, maxPages int) ([]types.DiscoveredURL, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	start := ingestion.NormalizeURL(baseURL)
	domain := ingestion.Domain(start)
	if domain == "" {
		return nil, &CrawlError{Message: "invalid base URL " + baseURL}
	}

	frontier := []string{start}
	queued := map[string]bool{start: true}
	visited := make(map[string]bool)
	discovered := make([]types.DiscoveredURL, 0)

	for len(frontier) > 0 && len(discovered) < maxPages {
		if err := ctx.Err(); err != nil {
			return discovered, err
		}

		current := frontier[0]
		frontier = frontier[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		log := c.logger.WithField("url", current)
		if c.robots != nil && !c.robots.Allowed(ctx, start, current) {
			log.Debug("disallowed by robots.txt")
			continue
		}

		result, err := c.fetcher.Get(ctx, current)
		if err != nil {
			log.WithError(err).Warn("crawl fetch failed")
			continue
		}
		if !result.OK() {
			log.WithField("status", result.StatusCode).Debug("crawl fetch returned non-200")
			continue
		}

		discovered = append(discovered, types.DiscoveredURL{URL: current, Source: types.SourceCrawl})
		if len(discovered) >= maxPages || !isHTML(result.ContentType) {
			continue
		}

		links, err := ExtractLinks(result.Body, current)
		if err != nil {
			log.WithError(err).Warn("link extraction failed")
			continue
		}
		for _, link := range links {
			if queued[link] || ingestion.Domain(link) != domain {
				continue
			}
			queued[link] = true
			frontier = append(frontier, link)
		}
	}

	c.logger.WithField("base_url", start).WithField("pages", len(discovered)).Info("fallback crawl finished")
	return discovered, nil
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" || strings.Contains(ct, "html")
}
