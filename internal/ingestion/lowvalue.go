package ingestion

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMinContentLength is the shortest content, in characters, kept by
// the default low-value policy.
const DefaultMinContentLength = 100

// DefaultLowValuePaths are path segments that mark utility, auth or
// non-HTML resources.
var DefaultLowValuePaths = []string{
	"/login", "/signin", "/signup", "/register", "/admin", "/wp-admin",
	"/dashboard", "/search", "/results", "/cart", "/checkout", "/account",
	"/404", "/error", "/maintenance", "/.well-known", "/robots.txt",
	"/sitemap", "/feed", "/rss", "/api/", "/download",
}

// DefaultLowValueExtensions are file types that never carry page prose.
var DefaultLowValueExtensions = []string{".pdf", ".doc", ".docx"}

// DefaultLowValueTitles are words or phrases that mark a low-value title.
var DefaultLowValueTitles = []string{
	"login", "sign in", "sign up", "register", "admin", "dashboard",
	"account", "404", "not found", "error", "search results", "cart", "checkout",
}

// LowValuePolicy decides whether a fetched page is worth keeping.
type LowValuePolicy interface {
	IsLowValue(pageURL, title, content string) bool
}

// PatternPolicy is the pattern-based LowValuePolicy. A page is low value when
// its path contains a listed segment or extension, its title contains a
// listed phrase as whole words, or its content is shorter than MinContentLength.
type PatternPolicy struct {
	MinContentLength int
	Paths            []string
	Extensions       []string
	titleMatchers    []*regexp.Regexp
}

// NewPatternPolicy builds a policy from explicit pattern lists.
func NewPatternPolicy(minContentLength int, paths, extensions, titles []string) *PatternPolicy {
	p := &PatternPolicy{
		MinContentLength: minContentLength,
		Paths:            paths,
		Extensions:       extensions,
	}
	for _, t := range titles {
		p.titleMatchers = append(p.titleMatchers, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(t)+`\b`))
	}
	return p
}

// DefaultLowValuePolicy returns the standard filter with the given minimum
// content length. A non-positive length uses DefaultMinContentLength.
func DefaultLowValuePolicy(minContentLength int) *PatternPolicy {
	if minContentLength <= 0 {
		minContentLength = DefaultMinContentLength
	}
	return NewPatternPolicy(minContentLength, DefaultLowValuePaths, DefaultLowValueExtensions, DefaultLowValueTitles)
}

// IsLowValue implements LowValuePolicy.
func (p *PatternPolicy) IsLowValue(pageURL, title, content string) bool {
	if p.pathMatches(pageURL) {
		return true
	}
	for _, re := range p.titleMatchers {
		if re.MatchString(title) {
			return true
		}
	}
	return utf8.RuneCountInString(strings.TrimSpace(content)) < p.MinContentLength
}

func (p *PatternPolicy) pathMatches(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	lowerPath := strings.ToLower(u.Path)

	for _, ext := range p.Extensions {
		if path.Ext(lowerPath) == ext {
			return true
		}
	}

	for _, pattern := range p.Paths {
		if segmentMatch(lowerPath, pattern) {
			return true
		}
	}
	return false
}

// segmentMatch reports whether pattern appears in p on segment boundaries.
// "/admin" matches "/admin", "/admin/users" and "/404.html" style names,
// but not "/administrator". A pattern ending in "/" only needs a prefix match
// of whole segments.
func segmentMatch(p, pattern string) bool {
	if strings.HasSuffix(pattern, "/") {
		return strings.Contains(p+"/", pattern)
	}
	for i := strings.Index(p, pattern); i >= 0; {
		end := i + len(pattern)
		if end == len(p) || p[end] == '/' || p[end] == '.' {
			return true
		}
		next := strings.Index(p[end:], pattern)
		if next < 0 {
			break
		}
		i = end + next
	}
	return false
}
