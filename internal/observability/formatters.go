// Package observability provides logging setup and formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/site-ingest/internal/chunking"
	"github.com/jonathan/site-ingest/internal/db"
	"github.com/jonathan/site-ingest/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to at most n runes, marking the cut with "...".
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintRunSummary outputs the counters of a finished ingestion run.
func (p *Printer) PrintRunSummary(s *types.RunSummary) {
	if s == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Site:        %s\n", s.BaseURL))
	if s.JobID != "" {
		sb.WriteString(fmt.Sprintf("Job:         %s\n", s.JobID))
	}
	if s.Source != "" {
		sb.WriteString(fmt.Sprintf("Discovery:   %s\n", s.Source))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Discovered:  %d\n", s.Discovered))
	sb.WriteString(fmt.Sprintf("Disallowed:  %d\n", s.Disallowed))
	sb.WriteString(fmt.Sprintf("Processed:   %d\n", s.Processed))
	sb.WriteString(fmt.Sprintf("Low value:   %d\n", s.LowValue))
	sb.WriteString(fmt.Sprintf("Failed:      %d\n", s.Failed))
	sb.WriteString(fmt.Sprintf("Chunks:      %d (%d tokens)\n", s.Chunks, s.Tokens))
	if s.Embedded > 0 {
		sb.WriteString(fmt.Sprintf("Embedded:    %d\n", s.Embedded))
	}
	sb.WriteString(fmt.Sprintf("Duration:    %s", s.Duration.Round(time.Millisecond)))

	p.printBox("INGESTION SUMMARY", sb.String())
}

// PrintDiscovered outputs the first few discovered URLs.
func (p *Printer) PrintDiscovered(urls []types.DiscoveredURL) {
	if len(urls) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Discovered %d URLs via %s\n\n", len(urls), urls[0].Source))

	count := min(len(urls), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("• %s\n", urls[i].URL))
	}
	if len(urls) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more URLs\n", len(urls)-maxItemsToShow))
	}

	p.printBox("DISCOVERED URLS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintChunkStats outputs token statistics for the chunks of one page or run.
func (p *Printer) PrintChunkStats(title string, stats chunking.Stats) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Chunks:      %d\n", stats.TotalChunks))
	sb.WriteString(fmt.Sprintf("Tokens:      %d total, %.1f avg\n", stats.TotalTokens, stats.AvgTokensPerChunk))
	sb.WriteString(fmt.Sprintf("Range:       %d - %d\n", stats.MinTokens, stats.MaxTokens))
	sb.WriteString(fmt.Sprintf("Characters:  %d\n", stats.TotalCharacters))
	sb.WriteString(fmt.Sprintf("Titled:      %d\n", stats.ChunksWithTitles))
	sb.WriteString(fmt.Sprintf("Summarized:  %d", stats.ChunksWithSummaries))

	if title == "" {
		title = "CHUNK STATISTICS"
	}
	p.printBox(title, sb.String())
}

// PrintFailedURLs outputs the failed-URL ledger of a site.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintFailedURLs(failed []types.FailedURL) {
	if len(failed) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO FAILED URLS")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d failed URLs:\n\n", len(failed)))

	for i, f := range failed {
		sb.WriteString(fmt.Sprintf("⚠ %s\n", f.URL))
		sb.WriteString(fmt.Sprintf("  %s (attempts: %d)\n", f.Reason, f.Attempts))
		if i < len(failed)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("FAILED URLS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintJob outputs the status record of one job.
func (p *Printer) PrintJob(job *db.ScrapeJob) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:       %s\n", job.ID))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("Progress:  %d/%d pages\n", job.PagesProcessed, job.PagesTotal))
	sb.WriteString(fmt.Sprintf("Task:      %s\n", job.CurrentTask))
	if job.ErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("Error:     %s\n", job.ErrorMessage))
	}
	sb.WriteString(fmt.Sprintf("Started:   %s", job.StartedAt.Format(time.RFC3339)))
	if job.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("\nFinished:  %s", job.CompletedAt.Format(time.RFC3339)))
	}

	p.printBox("SCRAPE JOB", sb.String())
}
