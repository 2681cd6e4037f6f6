package ingestion

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"host case and trailing slash", "https://Example.com/Path/", "https://example.com/Path"},
		{"root keeps slash", "https://example.com/", "https://example.com/"},
		{"empty path becomes slash", "https://example.com", "https://example.com/"},
		{"fragment dropped", "https://example.com/a#section", "https://example.com/a"},
		{"query kept", "https://example.com/a/?q=1&b=2", "https://example.com/a?q=1&b=2"},
		{"default port dropped", "HTTP://Example.com:80/x", "http://example.com/x"},
		{"custom port kept", "http://example.com:8080/x/", "http://example.com:8080/x"},
		{"multiple trailing slashes", "https://example.com/docs///", "https://example.com/docs"},
		{"path case kept", "https://example.com/API/Ref", "https://example.com/API/Ref"},
		{"escaped slash kept", "https://example.com/a%2F/", "https://example.com/a%2F"},
		{"escaped space kept", "https://example.com/read%20me/", "https://example.com/read%20me"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeURL(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeURL(got), "normalization must be idempotent")
		})
	}
}

func TestNormalizeURL_EscapedSlashIsDistinct(t *testing.T) {
	assert.NotEqual(t, NormalizeURL("https://example.com/a"), NormalizeURL("https://example.com/a%2F/"))
	assert.Equal(t, NormalizeURL("https://example.com/a"), NormalizeURL("https://example.com/a/"))
}

func TestNormalizeURL_Unparseable(t *testing.T) {
	assert.Equal(t, "not a url", NormalizeURL("  not a url "))
}

func TestSameDomain(t *testing.T) {
	assert.True(t, SameDomain("https://Example.com/a", "https://example.com/b/c"))
	assert.False(t, SameDomain("https://example.com/a", "https://other.com/a"))
	assert.False(t, SameDomain("https://example.com/a", "https://sub.example.com/a"))
	assert.False(t, SameDomain("", ""))
	assert.Equal(t, "example.com:8080", Domain("http://Example.com:8080/x"))
}

func TestResolveReference(t *testing.T) {
	base, err := url.Parse("https://example.com/docs/intro")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/docs/setup", ResolveReference(base, "setup"))
	assert.Equal(t, "https://example.com/about", ResolveReference(base, "/about/"))
	assert.Equal(t, "https://example.com/docs/intro", ResolveReference(base, "intro#top"))
	assert.Equal(t, "https://other.com/", ResolveReference(base, "https://other.com"))
	assert.Empty(t, ResolveReference(base, "#top"))
	assert.Empty(t, ResolveReference(base, "mailto:hi@example.com"))
	assert.Empty(t, ResolveReference(base, "javascript:void(0)"))
	assert.Empty(t, ResolveReference(base, ""))
}
