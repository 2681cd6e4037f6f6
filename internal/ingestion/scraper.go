package ingestion

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jonathan/site-ingest/internal/fetch"
	"github.com/jonathan/site-ingest/internal/types"
	"github.com/sirupsen/logrus"
)

// ErrLowValue is returned when a fetched page is rejected by the LowValuePolicy.
var ErrLowValue = errors.New("low-value page")

// StatusError is returned when a page responds with anything but 200.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// ScraperConfig holds the optional collaborators of a Scraper.
type ScraperConfig struct {
	// Policy filters low-value pages. Nil uses DefaultLowValuePolicy.
	Policy LowValuePolicy
	// Renderer, when set, re-renders pages whose extracted content is
	// shorter than MinContentLength.
	Renderer         fetch.Renderer
	MinContentLength int
	Logger           logrus.FieldLogger
}

// Scraper fetches single pages and turns them into types.Page values.
type Scraper struct {
	fetcher          fetch.Fetcher
	policy           LowValuePolicy
	renderer         fetch.Renderer
	minContentLength int
	logger           logrus.FieldLogger
}

// NewScraper creates a scraper that fetches through fetcher.
func NewScraper(fetcher fetch.Fetcher, cfg ScraperConfig) *Scraper {
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = DefaultMinContentLength
	}
	if cfg.Policy == nil {
		cfg.Policy = DefaultLowValuePolicy(cfg.MinContentLength)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Scraper{
		fetcher:          fetcher,
		policy:           cfg.Policy,
		renderer:         cfg.Renderer,
		minContentLength: cfg.MinContentLength,
		logger:           cfg.Logger,
	}
}

// ScrapePage fetches pageURL and extracts a Page.
// It returns a *fetch.Error for transport failures, a *StatusError for
// non-200 responses and ErrLowValue when the page is filtered out.
func (s *Scraper) ScrapePage(ctx context.Context, pageURL string) (*types.Page, error) {
	result, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if !result.OK() {
		return nil, &StatusError{URL: pageURL, StatusCode: result.StatusCode}
	}

	extracted, err := Extract(result.Body)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", pageURL, err)
	}

	rendered := false
	if s.renderer != nil && fetch.ShouldUseBrowser(extracted.Content, s.minContentLength) {
		if better, ok := s.render(ctx, pageURL, extracted); ok {
			extracted = better
			rendered = true
		}
	}

	if s.policy.IsLowValue(pageURL, extracted.Title, extracted.Content) {
		return nil, fmt.Errorf("%w: %s", ErrLowValue, pageURL)
	}

	return &types.Page{
		URL:      pageURL,
		Title:    extracted.Title,
		Summary:  extracted.Summary,
		Content:  extracted.Content,
		Headers:  extracted.Headers,
		Metadata: pageMetadata(result, extracted, rendered),
	}, nil
}

// render re-extracts pageURL from a browser rendering and reports whether
// it produced more content than the static fetch.
func (s *Scraper) render(ctx context.Context, pageURL string, static *Extracted) (*Extracted, bool) {
	log := s.logger.WithField("url", pageURL)
	log.Debug("static content too short, rendering with browser")

	html, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		log.WithError(err).Warn("browser rendering failed, keeping static content")
		return nil, false
	}
	extracted, err := Extract(html)
	if err != nil || utf8.RuneCountInString(extracted.Content) <= utf8.RuneCountInString(static.Content) {
		return nil, false
	}
	return extracted, true
}
