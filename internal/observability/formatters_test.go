package observability

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/site-ingest/internal/chunking"
	"github.com/jonathan/site-ingest/internal/db"
	"github.com/jonathan/site-ingest/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRunSummary(&types.RunSummary{
		JobID:      "job_1_abcdef12",
		BaseURL:    "https://docs.example.com",
		Source:     types.SourceSitemap,
		Discovered: 12,
		Processed:  9,
		LowValue:   2,
		Failed:     1,
		Chunks:     30,
		Tokens:     9000,
		Duration:   1500 * time.Millisecond,
	})
	output := buf.String()

	assert.Contains(t, output, "INGESTION SUMMARY")
	assert.Contains(t, output, "https://docs.example.com")
	assert.Contains(t, output, "sitemap")
	assert.Contains(t, output, "Processed:   9")
	assert.Contains(t, output, "30 (9000 tokens)")
	assert.Contains(t, output, "1.5s")
	assert.NotContains(t, output, "Embedded")
}

func TestPrintRunSummary_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRunSummary(nil)
	assert.Empty(t, buf.String())
}

func TestPrintDiscovered_Truncates(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	var urls []types.DiscoveredURL
	for i := 0; i < 8; i++ {
		urls = append(urls, types.DiscoveredURL{URL: fmt.Sprintf("https://example.com/p%d", i), Source: types.SourceCrawl})
	}
	p.PrintDiscovered(urls)
	output := buf.String()

	assert.Contains(t, output, "Discovered 8 URLs via crawl")
	assert.Contains(t, output, "https://example.com/p4")
	assert.NotContains(t, output, "https://example.com/p5")
	assert.Contains(t, output, "... and 3 more URLs")
}

func TestPrintDiscovered_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintDiscovered(nil)
	assert.Empty(t, buf.String())
}

func TestPrintChunkStats(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintChunkStats("", chunking.Stats{TotalChunks: 3, TotalTokens: 900, AvgTokensPerChunk: 300, MinTokens: 200, MaxTokens: 400})
	output := buf.String()

	assert.Contains(t, output, "CHUNK STATISTICS")
	assert.Contains(t, output, "900 total, 300.0 avg")
	assert.Contains(t, output, "200 - 400")
}

func TestPrintFailedURLs(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintFailedURLs([]types.FailedURL{{URL: "https://example.com/gone", Reason: "HTTP 404", Attempts: 2}})
	output := buf.String()
	assert.Contains(t, output, "FAILED URLS")
	assert.Contains(t, output, "https://example.com/gone")
	assert.Contains(t, output, "HTTP 404 (attempts: 2)")

	buf.Reset()
	p.PrintFailedURLs(nil)
	assert.Contains(t, buf.String(), "NO FAILED URLS")
}

func TestPrintJob(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	done := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p.PrintJob(&db.ScrapeJob{
		ID:             "job_1_abcdef12",
		Status:         db.JobFailed,
		PagesTotal:     10,
		PagesProcessed: 4,
		CurrentTask:    "Failed",
		ErrorMessage:   "no pages produced",
		StartedAt:      done.Add(-time.Minute),
		CompletedAt:    &done,
	})
	output := buf.String()

	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "4/10 pages")
	assert.Contains(t, output, "no pages produced")
	assert.Contains(t, output, "2024-01-02T03:04:05Z")
}

func TestPrintBox_ClipsLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("T", strings.Repeat("x", 200))
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}
