// Package fetch - browser.go provides headless browser rendering for JavaScript-only pages.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chromedp/chromedp"
	"github.com/jonathan/site-ingest/internal/ratelimit"
)

// Renderer renders a page and returns its final HTML.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// ShouldUseBrowser returns true if the extracted text is shorter than minLength characters,
// indicating the page is likely rendered client-side.
func ShouldUseBrowser(extractedText string, minLength int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(extractedText)) < minLength
}

// ChromeRenderer renders pages with a headless Chrome through the shared limiter.
// Requires Chrome/Chromium to be installed on the system.
type ChromeRenderer struct {
	limiter   *ratelimit.Limiter
	timeout   time.Duration
	userAgent string
}

// NewChromeRenderer creates a renderer. A zero timeout uses DefaultTimeout.
func NewChromeRenderer(limiter *ratelimit.Limiter, timeout time.Duration, userAgent string) *ChromeRenderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if limiter == nil {
		limiter = ratelimit.NewLimiter(0)
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &ChromeRenderer{limiter: limiter, timeout: timeout, userAgent: userAgent}
}

// Render navigates to url, waits for the body and returns the outer HTML.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	if err := r.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(r.userAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// give client-side frameworks time to render
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	return html, nil
}
