package crawling

import (
	"context"

	"github.com/jonathan/site-ingest/internal/types"
	"github.com/sirupsen/logrus"
)

// Discoverer resolves the URL set of a site: the sitemap when one exists,
// otherwise a bounded fallback crawl.
type Discoverer struct {
	sitemaps *SitemapResolver
	crawler  *FrontierCrawler
	logger   logrus.FieldLogger
	// Limit truncates the discovered list when positive (test mode).
	Limit int
}

// NewDiscoverer creates a discoverer from its two strategies.
func NewDiscoverer(sitemaps *SitemapResolver, crawler *FrontierCrawler, logger logrus.FieldLogger) *Discoverer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Discoverer{sitemaps: sitemaps, crawler: crawler, logger: logger}
}

// Discover returns the site's URLs. Sitemap-derived URLs keep sitemap order;
// crawl-derived URLs keep BFS order. maxPages bounds the fallback crawl and,
// when positive, the sitemap list too.
func (d *Discoverer) Discover(ctx context.Context, baseURL string, maxPages int) ([]types.DiscoveredURL, error) {
	urls, err := d.sitemaps.Discover(ctx, baseURL)
	if err != nil {
		return nil, err
	}

	if len(urls) == 0 {
		d.logger.WithField("base_url", baseURL).Info("starting fallback crawl")
		urls, err = d.crawler.Crawl(ctx, baseURL, maxPages)
		if err != nil {
			return urls, err
		}
	}

	if maxPages > 0 && len(urls) > maxPages {
		urls = urls[:maxPages]
	}
	if d.Limit > 0 && len(urls) > d.Limit {
		d.logger.WithField("limit", d.Limit).WithField("found", len(urls)).Info("test mode, truncating discovered URLs")
		urls = urls[:d.Limit]
	}
	return urls, nil
}
