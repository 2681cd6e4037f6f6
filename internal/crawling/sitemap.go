package crawling

import (
	"context"
	"encoding/xml"
	"net/url"
	"strings"

	"github.com/jonathan/site-ingest/internal/fetch"
	"github.com/jonathan/site-ingest/internal/ingestion"
	"github.com/jonathan/site-ingest/internal/types"
	"github.com/sirupsen/logrus"
)

// SitemapPaths are tried in order; the first that answers 200 is used.
var SitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap/sitemap.xml",
	"/sitemaps/sitemap.xml",
}

const (
	// DefaultSitemapMaxDepth bounds sitemap-index nesting.
	DefaultSitemapMaxDepth = 5
	// maxSitemapFetches bounds the number of nested sitemap documents per site.
	maxSitemapFetches = 500
)

// sitemapDocument matches both <urlset> and <sitemapindex> in any namespace.
type sitemapDocument struct {
	XMLName  xml.Name
	Sitemaps []sitemapEntry `xml:"sitemap"`
	URLs     []urlEntry     `xml:"url"`
}

type sitemapEntry struct {
	Location string `xml:"loc"`
}

type urlEntry struct {
	Location string `xml:"loc"`
	LastMod  string `xml:"lastmod"`
}

// SitemapResolver expands a site's sitemap into a flat list of page URLs.
type SitemapResolver struct {
	fetcher  fetch.Fetcher
	maxDepth int
	logger   logrus.FieldLogger
}

// NewSitemapResolver creates a resolver. A non-positive maxDepth uses
// DefaultSitemapMaxDepth.
func NewSitemapResolver(fetcher fetch.Fetcher, maxDepth int, logger logrus.FieldLogger) *SitemapResolver {
	if maxDepth <= 0 {
		maxDepth = DefaultSitemapMaxDepth
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SitemapResolver{fetcher: fetcher, maxDepth: maxDepth, logger: logger}
}

// sitemapWalk holds the state of one Discover call.
type sitemapWalk struct {
	domain  string
	seen    map[string]bool
	fetched map[string]bool
	urls    []types.DiscoveredURL
}

// Discover returns the normalized same-domain page URLs listed in the site's
// sitemap, deduplicated in first-seen order. Sitemaps are not merged across
// SitemapPaths. An empty result means no usable sitemap was found; the only
// error returned is ctx's.
func (r *SitemapResolver) Discover(ctx context.Context, baseURL string) ([]types.DiscoveredURL, error) {
	root := siteRoot(baseURL)
	walk := &sitemapWalk{
		domain:  ingestion.Domain(root),
		seen:    make(map[string]bool),
		fetched: make(map[string]bool),
	}

	for _, path := range SitemapPaths {
		sitemapURL := root + path
		result, err := r.fetcher.Get(ctx, sitemapURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.WithField("url", sitemapURL).WithError(err).Debug("sitemap fetch failed")
			continue
		}
		if !result.OK() {
			continue
		}

		r.logger.WithField("url", sitemapURL).Info("found sitemap")
		walk.fetched[sitemapURL] = true
		if err := r.parse(ctx, walk, sitemapURL, result.Body, 0); err != nil {
			return nil, err
		}
		break
	}

	if len(walk.urls) == 0 {
		r.logger.WithField("base_url", root).Info("no usable sitemap, fallback crawl required")
	}
	return walk.urls, nil
}

// parse reads one sitemap document, recursing into nested sitemaps of an index.
func (r *SitemapResolver) parse(ctx context.Context, walk *sitemapWalk, sitemapURL, body string, depth int) error {
	doc, err := parseSitemapXML(sitemapURL, body)
	if err != nil {
		r.logger.WithError(err).Warn("skipping sitemap")
		return nil
	}

	if doc.XMLName.Local == "sitemapindex" {
		if depth >= r.maxDepth {
			r.logger.WithField("url", sitemapURL).WithField("depth", depth).Warn("sitemap index nested too deep, skipping")
			return nil
		}
		for _, entry := range doc.Sitemaps {
			if err := r.parseNested(ctx, walk, strings.TrimSpace(entry.Location), depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	for _, entry := range doc.URLs {
		walk.add(entry.Location)
	}
	return nil
}

func (r *SitemapResolver) parseNested(ctx context.Context, walk *sitemapWalk, nestedURL string, depth int) error {
	if nestedURL == "" || walk.fetched[nestedURL] {
		return nil
	}
	if len(walk.fetched) >= maxSitemapFetches {
		r.logger.WithField("url", nestedURL).Warn("sitemap fetch limit reached, skipping")
		return nil
	}
	walk.fetched[nestedURL] = true

	log := r.logger.WithField("url", nestedURL)
	result, err := r.fetcher.Get(ctx, nestedURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("failed to fetch nested sitemap, continuing")
		return nil
	}
	if !result.OK() {
		log.WithField("status", result.StatusCode).Warn("nested sitemap unavailable, continuing")
		return nil
	}
	return r.parse(ctx, walk, nestedURL, result.Body, depth)
}

func parseSitemapXML(sitemapURL, body string) (*sitemapDocument, error) {
	var doc sitemapDocument
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, &SitemapError{URL: sitemapURL, Message: "malformed XML", Cause: err}
	}
	switch doc.XMLName.Local {
	case "urlset", "sitemapindex":
		return &doc, nil
	default:
		return nil, &SitemapError{URL: sitemapURL, Message: "unexpected root element <" + doc.XMLName.Local + ">"}
	}
}

func (w *sitemapWalk) add(loc string) {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return
	}
	normalized := ingestion.NormalizeURL(loc)
	if ingestion.Domain(normalized) != w.domain || w.seen[normalized] {
		return
	}
	w.seen[normalized] = true
	w.urls = append(w.urls, types.DiscoveredURL{URL: normalized, Source: types.SourceSitemap})
}

// siteRoot returns scheme://host of baseURL. Sitemap paths are always
// resolved against the domain root.
func siteRoot(baseURL string) string {
	u, err := url.Parse(ingestion.NormalizeURL(baseURL))
	if err != nil || u.Host == "" {
		return strings.TrimRight(baseURL, "/")
	}
	return u.Scheme + "://" + u.Host
}
