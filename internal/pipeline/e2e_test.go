package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jonathan/site-ingest/internal/chunking"
	"github.com/jonathan/site-ingest/internal/crawling"
	"github.com/jonathan/site-ingest/internal/fetch"
	"github.com/jonathan/site-ingest/internal/ingestion"
	"github.com/jonathan/site-ingest/internal/observability"
	"github.com/jonathan/site-ingest/internal/ratelimit"
	"github.com/jonathan/site-ingest/internal/robots"
	"github.com/jonathan/site-ingest/internal/schemas"
	"github.com/jonathan/site-ingest/internal/types"
	rootschemas "github.com/jonathan/site-ingest/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func article(title, body string) string {
	return "<html><head><title>" + title + "</title>" +
		`<meta name="description" content="About ` + title + `"></head>` +
		"<body><nav>Home Docs Blog</nav><article><h1>" + title + "</h1><p>" + body + "</p></article>" +
		"<footer>Copyright</footer></body></html>"
}

// docSite serves robots.txt, a sitemap and a handful of pages.
func docSite(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var robotsHits int32
	prose := strings.Repeat("The ingestion pipeline keeps documentation searchable for everyone. ", 12)

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			atomic.AddInt32(&robotsHits, 1)
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
		case "/sitemap.xml":
			w.Header().Set("Content-Type", "application/xml")
			var sb strings.Builder
			sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
			for _, p := range []string{"/docs/intro/", "/docs/guide", "/private/notes", "/login", "/missing", "https://elsewhere.example/x"} {
				loc := p
				if strings.HasPrefix(p, "/") {
					loc = server.URL + p
				}
				sb.WriteString("<url><loc>" + loc + "</loc></url>")
			}
			sb.WriteString(`</urlset>`)
			_, _ = w.Write([]byte(sb.String()))
		case "/docs/intro":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(article("Introduction", prose)))
		case "/docs/guide":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(article("User Guide", prose+prose)))
		case "/private/notes":
			_, _ = w.Write([]byte(article("Private", prose)))
		case "/login":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(article("Sign in", prose)))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, &robotsHits
}

func TestPipeline_EndToEnd(t *testing.T) {
	server, robotsHits := docSite(t)
	logger := observability.Discard()
	ctx := context.Background()

	client := fetch.NewClient(ratelimit.NewLimiter(0), &fetch.Options{UserAgent: "TestBot/1.0"})
	robotsCache := robots.NewCache(client, "TestBot/1.0", logger)
	discoverer := crawling.NewDiscoverer(
		crawling.NewSitemapResolver(client, 0, logger),
		crawling.NewFrontierCrawler(client, robotsCache, logger),
		logger,
	)

	dir := t.TempDir()
	store, err := OpenFileStore(dir)
	require.NoError(t, err)
	site, err := store.UpsertSite(ctx, ingestion.NormalizeURL(server.URL), "Docs", "")
	require.NoError(t, err)

	p := New(Deps{
		Discoverer: discoverer,
		Robots:     robotsCache,
		Scraper:    ingestion.NewScraper(client, ingestion.ScraperConfig{Logger: logger}),
		Chunker:    chunking.NewChunker(chunking.Config{ChunkSize: 120, Overlap: 20}),
		Store:      store,
		Ledger:     store,
		Logger:     logger,
	}, Options{MaxPages: 50})

	summary, err := p.Run(ctx, Job{ID: NewJobID(site.BaseURL, fixedNow), Site: *site})
	require.NoError(t, err)

	assert.Equal(t, types.SourceSitemap, summary.Source)
	assert.Equal(t, 5, summary.Discovered) // off-domain entry dropped
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Disallowed)
	assert.Equal(t, 1, summary.LowValue)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, int32(1), atomic.LoadInt32(robotsHits))

	pages := store.Pages(site.ID)
	require.Len(t, pages, 2)
	intro := pages[0]
	assert.Equal(t, server.URL+"/docs/intro", intro.URL)
	assert.Equal(t, "Introduction", intro.Title)
	assert.Equal(t, "About Introduction", intro.Summary)
	assert.Equal(t, []types.Header{{Level: 1, Text: "Introduction"}}, intro.Headers)
	assert.NotContains(t, intro.Content, "Copyright")

	guideChunks := store.Chunks(site.ID, server.URL+"/docs/guide")
	require.Greater(t, len(guideChunks), 1)
	for i, c := range guideChunks {
		assert.Equal(t, i+1, c.ChunkNumber)
		assert.LessOrEqual(t, c.TokenCount, 120)
		v, ok := c.Metadata.Get("source_url")
		require.True(t, ok)
		assert.Equal(t, server.URL+"/docs/guide", v)
	}

	// the documents are valid on disk without a Flush
	for name, schema := range map[string]string{PagesFile: rootschemas.Page, ChunksFile: rootschemas.Chunk, FailedURLsFile: rootschemas.FailedURL} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.NoError(t, schemas.ValidateJSONString(schema, string(data)), name)
	}

	reopened, err := OpenFileStore(dir)
	require.NoError(t, err)
	assert.Len(t, reopened.Pages(site.ID), 2)
	failed, err := reopened.ListFailedURLs(ctx, site.ID)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, server.URL+"/missing", failed[0].URL)
	assert.Equal(t, "HTTP 404", failed[0].Reason)
}
