// Package fetch provides the rate-limited, timeout-bounded HTTP fetch capability
// shared by sitemap discovery, robots.txt lookups and page scraping.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/site-ingest/internal/ratelimit"
	"golang.org/x/net/html/charset"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "SiteIngestBot/1.0 (+https://github.com/jonathan/site-ingest)"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// Result holds the response of a single fetch.
type Result struct {
	URL         string
	Body        string
	StatusCode  int
	Headers     http.Header
	ContentType string
}

// OK reports whether the response status was 200.
func (r *Result) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK
}

// Error represents an error during URL fetching.
type Error struct {
	URL       string
	Message   string
	Cause     error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// Fetcher is the capability consumed by discovery, robots and scraping.
type Fetcher interface {
	Get(ctx context.Context, urlStr string) (*Result, error)
}

// Client fetches URLs through a shared rate limiter.
type Client struct {
	http    *http.Client
	limiter *ratelimit.Limiter
	options *Options
}

// NewClient creates a fetch client. A nil limiter means no throttling.
func NewClient(limiter *ratelimit.Limiter, opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if limiter == nil {
		limiter = ratelimit.NewLimiter(0)
	}
	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		limiter: limiter,
		options: opts,
	}
}

// Get waits for the rate limiter, then fetches urlStr.
// Any HTTP status is returned as a Result; only transport failures
// (invalid URL, network error, timeout, unreadable body) produce an error.
func (c *Client) Get(ctx context.Context, urlStr string) (*Result, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "rate limiter wait aborted",
			Cause:   err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	req.Header.Set("User-Agent", c.options.UserAgent)
	for key, value := range c.options.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{
			URL:       urlStr,
			Message:   "HTTP request failed",
			Cause:     err,
			Retryable: true,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get("Content-Type")
	body, err := readBody(resp.Body, contentType)
	if err != nil {
		return nil, &Error{
			URL:       urlStr,
			Message:   "failed to read response body",
			Cause:     err,
			Retryable: true,
		}
	}

	return &Result{
		URL:         urlStr,
		Body:        body,
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header,
		ContentType: contentType,
	}, nil
}

// readBody reads at most maxBodyBytes, converting textual bodies to UTF-8.
func readBody(r io.Reader, contentType string) (string, error) {
	limited := io.LimitReader(r, maxBodyBytes)
	if isTextual(contentType) {
		decoded, err := charset.NewReader(limited, contentType)
		if err == nil {
			limited = decoded
		}
	}
	data, err := io.ReadAll(limited)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func isTextual(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" || strings.HasPrefix(ct, "text/") || strings.Contains(ct, "html") || strings.Contains(ct, "xml")
}
