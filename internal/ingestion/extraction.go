package ingestion

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/site-ingest/internal/types"
	"golang.org/x/net/html"
)

// DefaultTitle is used when a page has no <title>.
const DefaultTitle = "Untitled"

// strippedSelector removes page chrome before any text is read.
const strippedSelector = "script, style, nav, footer, header, aside, noscript, iframe"

// MainContentSelectors are tried in order; the first one that matches at
// least one element supplies the page content.
var MainContentSelectors = []string{
	"main",
	"article",
	`[role="main"]`,
	".content",
	".main-content",
	"#content",
	"#main",
}

// Extracted is the structured text pulled out of one HTML document.
type Extracted struct {
	Title   string
	Summary string
	Content string
	Headers []types.Header
}

// Extract parses an HTML document and returns its title, meta description,
// main-content text and the h1-h6 headers left after boilerplate removal.
func Extract(htmlContent string) (*Extracted, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := CleanText(doc.Find("title").First().Text())
	if title == "" {
		title = DefaultTitle
	}

	summary := ""
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		summary = CleanText(desc)
	}

	doc.Find(strippedSelector).Remove()

	return &Extracted{
		Title:   title,
		Summary: summary,
		Content: mainContent(doc),
		Headers: extractHeaders(doc),
	}, nil
}

func mainContent(doc *goquery.Document) string {
	for _, selector := range MainContentSelectors {
		matches := doc.Find(selector)
		if matches.Length() == 0 {
			continue
		}
		parts := make([]string, 0, matches.Length())
		matches.Each(func(_ int, s *goquery.Selection) {
			parts = append(parts, selectionText(s))
		})
		if content := CleanText(strings.Join(parts, " ")); content != "" {
			return content
		}
		break
	}

	if body := doc.Find("body"); body.Length() > 0 {
		if content := CleanText(selectionText(body)); content != "" {
			return content
		}
	}
	return CleanText(selectionText(doc.Selection))
}

func extractHeaders(doc *goquery.Document) []types.Header {
	headers := []types.Header{}
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := CleanText(selectionText(s))
		if text == "" {
			return
		}
		name := goquery.NodeName(s)
		headers = append(headers, types.Header{
			Level: int(name[1] - '0'),
			Text:  text,
		})
	})
	return headers
}

// selectionText joins every descendant text node with a space so adjacent
// block elements do not run together.
func selectionText(s *goquery.Selection) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return sb.String()
}
