// Package robots caches robots.txt policies per domain and answers
// whether the crawler's user agent may fetch a URL.
package robots

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/jonathan/site-ingest/internal/fetch"
	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

// Cache holds one parsed robots.txt per domain for the lifetime of a run.
// A nil entry means the domain allows everything.
type Cache struct {
	fetcher   fetch.Fetcher
	userAgent string
	logger    logrus.FieldLogger

	mu       sync.Mutex
	policies map[string]*robotstxt.RobotsData
	loading  map[string]chan struct{}
}

// NewCache creates an empty cache that fetches robots.txt through fetcher.
func NewCache(fetcher fetch.Fetcher, userAgent string, logger logrus.FieldLogger) *Cache {
	if userAgent == "" {
		userAgent = fetch.DefaultUserAgent
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Cache{
		fetcher:   fetcher,
		userAgent: userAgent,
		logger:    logger,
		policies:  make(map[string]*robotstxt.RobotsData),
		loading:   make(map[string]chan struct{}),
	}
}

// Allowed reports whether targetURL may be fetched. The policy for baseURL's
// domain is fetched on first use and reused afterwards. Fetch failures,
// non-200 responses and unparseable files all resolve to allow-all.
func (c *Cache) Allowed(ctx context.Context, baseURL, targetURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return true
	}
	domain := strings.ToLower(base.Host)

	policy := c.policy(ctx, domain, base.Scheme)
	if policy == nil {
		return true
	}

	path := "/"
	if target, err := url.Parse(targetURL); err == nil {
		path = target.EscapedPath()
		if path == "" {
			path = "/"
		}
		if target.RawQuery != "" {
			path += "?" + target.RawQuery
		}
	}
	return policy.TestAgent(path, c.agentToken())
}

// Len returns the number of domains with a resolved policy.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.policies)
}

func (c *Cache) policy(ctx context.Context, domain, scheme string) *robotstxt.RobotsData {
	for {
		c.mu.Lock()
		if p, ok := c.policies[domain]; ok {
			c.mu.Unlock()
			return p
		}
		if wait, ok := c.loading[domain]; ok {
			c.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil
			}
		}
		done := make(chan struct{})
		c.loading[domain] = done
		c.mu.Unlock()

		p := c.load(ctx, domain, scheme)

		c.mu.Lock()
		c.policies[domain] = p
		delete(c.loading, domain)
		c.mu.Unlock()
		close(done)
		return p
	}
}

func (c *Cache) load(ctx context.Context, domain, scheme string) *robotstxt.RobotsData {
	if scheme == "" {
		scheme = "https"
	}
	robotsURL := scheme + "://" + domain + "/robots.txt"
	log := c.logger.WithField("robots_url", robotsURL)

	result, err := c.fetcher.Get(ctx, robotsURL)
	if err != nil {
		log.WithError(err).Warn("robots.txt fetch failed, allowing all")
		return nil
	}
	if !result.OK() {
		log.WithField("status", result.StatusCode).Debug("no robots.txt, allowing all")
		return nil
	}

	data, err := robotstxt.FromBytes([]byte(result.Body))
	if err != nil {
		log.WithError(err).Warn("robots.txt unparseable, allowing all")
		return nil
	}
	log.Debug("robots.txt loaded")
	return data
}

// agentToken reduces a full User-Agent header to the product token used
// for group matching, e.g. "SiteIngestBot/1.0 (+...)" becomes "SiteIngestBot".
func (c *Cache) agentToken() string {
	token := c.userAgent
	if i := strings.IndexAny(token, "/ "); i > 0 {
		token = token[:i]
	}
	return token
}
