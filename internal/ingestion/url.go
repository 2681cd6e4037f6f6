package ingestion

import (
	"net/url"
	"strings"
)

// NormalizeURL returns the canonical form of rawURL: lowercase scheme and host,
// default port dropped, fragment removed, trailing slashes trimmed from the
// path (an empty path becomes "/") and the query kept as-is. Only literal
// slashes are trimmed; an escaped "%2F" is part of the last segment.
// NormalizeURL is idempotent. Unparseable input is returned trimmed.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}
	u.Fragment = ""
	u.RawFragment = ""

	escaped := strings.TrimRight(u.EscapedPath(), "/")
	if escaped == "" {
		escaped = "/"
	}
	if p, err := url.PathUnescape(escaped); err == nil {
		u.Path = p
		u.RawPath = escaped
	}

	return u.String()
}

// Domain returns the lowercase host (including any non-default port) of rawURL,
// or "" if it cannot be parsed.
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// SameDomain reports whether both URLs share a non-empty host.
func SameDomain(a, b string) bool {
	da := Domain(NormalizeURL(a))
	return da != "" && da == Domain(NormalizeURL(b))
}

// ResolveReference resolves href against base and returns the normalized
// absolute URL. Non-http(s) schemes and unparseable hrefs return "".
func ResolveReference(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return NormalizeURL(abs.String())
}
