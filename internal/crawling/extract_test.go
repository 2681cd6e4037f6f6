package crawling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks_KeepsDocumentOrderAcrossLayout(t *testing.T) {
	html := `<html><body>
		<nav><a href="/guide">Guide</a><a href="/reference">Reference</a></nav>
		<main><a href="/guide/install">Install</a><a href="https://cdn.other.net/lib.js">CDN</a></main>
		<footer><a href="/changelog">Changelog</a></footer>
	</body></html>`

	links, err := ExtractLinks(html, "https://docs.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://docs.example.com/guide",
		"https://docs.example.com/reference",
		"https://docs.example.com/guide/install",
		"https://docs.example.com/changelog",
	}, links)
}

func TestExtractLinks(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		baseURL string
		want    []string
	}{
		{
			name:    "other hosts dropped, scheme ignored for domain match",
			html:    `<a href="https://docs.example.com/a">A</a><a href="https://blog.example.com/b">B</a><a href="http://docs.example.com/c">C</a>`,
			baseURL: "https://docs.example.com",
			want:    []string{"https://docs.example.com/a", "http://docs.example.com/c"},
		},
		{
			name:    "relative references resolve against the page",
			html:    `<a href="/top">1</a><a href="sibling">2</a><a href="../up">3</a>`,
			baseURL: "https://docs.example.com/guide/setup/page",
			want: []string{
				"https://docs.example.com/top",
				"https://docs.example.com/guide/setup/sibling",
				"https://docs.example.com/guide/up",
			},
		},
		{
			name:    "normalized duplicates collapse",
			html:    `<a href="/faq">1</a><a href="/faq/">2</a><a href="HTTPS://DOCS.example.com/faq#billing">3</a><a href="/faq">4</a>`,
			baseURL: "https://docs.example.com",
			want:    []string{"https://docs.example.com/faq"},
		},
		{
			name:    "fragments and same-page anchors",
			html:    `<a href="/api#auth">1</a><a href="/api#errors">2</a><a href="#top">3</a>`,
			baseURL: "https://docs.example.com",
			want:    []string{"https://docs.example.com/api"},
		},
		{
			name:    "non-http schemes skipped",
			html:    `<a href="mailto:support@example.com">m</a><a href="tel:+15550100">t</a><a href="javascript:void(0)">j</a><a href="/contact">c</a>`,
			baseURL: "https://docs.example.com",
			want:    []string{"https://docs.example.com/contact"},
		},
		{
			name:    "base element changes resolution",
			html:    `<html><head><base href="/v2/"></head><body><a href="quickstart">Q</a></body></html>`,
			baseURL: "https://docs.example.com/index.html",
			want:    []string{"https://docs.example.com/v2/quickstart"},
		},
		{
			name:    "malformed and missing hrefs ignored",
			html:    `<a href="ok">ok</a><a href="://broken">x</a><a>none</a>`,
			baseURL: "https://docs.example.com",
			want:    []string{"https://docs.example.com/ok"},
		},
		{
			name:    "query strings are kept",
			html:    `<a href="/search-tips?lang=go">go</a><a href="/search-tips?lang=py">py</a>`,
			baseURL: "https://docs.example.com",
			want:    []string{"https://docs.example.com/search-tips?lang=go", "https://docs.example.com/search-tips?lang=py"},
		},
		{
			name:    "no links",
			html:    `<p>plain text</p>`,
			baseURL: "https://docs.example.com",
			want:    []string{},
		},
		{
			name:    "empty document",
			html:    "",
			baseURL: "https://docs.example.com",
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, err := ExtractLinks(tt.html, tt.baseURL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, links)
		})
	}
}

func TestExtractLinks_RejectsRelativeBase(t *testing.T) {
	_, err := ExtractLinks(`<a href="/x">x</a>`, "docs.example.com/start")
	require.Error(t, err)

	var linkErr *LinkExtractionError
	assert.ErrorAs(t, err, &linkErr)
	assert.Contains(t, err.Error(), "must have scheme and host")
}
