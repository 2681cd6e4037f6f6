// Package chunking splits page text into overlapping, token-bounded chunks
// sized for embedding and retrieval.
package chunking

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/site-ingest/internal/ingestion"
	"github.com/jonathan/site-ingest/internal/types"
)

const (
	// DefaultChunkSize is the default token budget per chunk.
	DefaultChunkSize = 400
	// DefaultChunkOverlap is the default number of tokens carried into the next chunk.
	DefaultChunkOverlap = 50
	// TokensPerWord is the fixed word-to-token ratio used by EstimateTokens.
	TokensPerWord = 1.3

	// sentences of this many characters or fewer are dropped as noise
	minSentenceLength = 10
	maxSummaryLength  = 200
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+\s+`)

// Config controls chunk sizing.
type Config struct {
	// ChunkSize is the token budget per chunk. Non-positive uses DefaultChunkSize.
	ChunkSize int
	// Overlap is the token budget copied from the end of one chunk into the
	// start of the next. Zero or negative disables overlap.
	Overlap int
}

// DefaultConfig returns the default chunk sizing.
func DefaultConfig() Config {
	return Config{ChunkSize: DefaultChunkSize, Overlap: DefaultChunkOverlap}
}

// Chunker turns page content into ContentChunks.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker.
func NewChunker(cfg Config) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	return &Chunker{chunkSize: cfg.ChunkSize, overlap: cfg.Overlap}
}

// EstimateTokens approximates the token count of text as round(words * 1.3).
func EstimateTokens(text string) int {
	return estimate(len(strings.Fields(text)))
}

func estimate(words int) int {
	return int(math.Round(float64(words) * TokensPerWord))
}

// SplitSentences cleans text and splits it on runs of '.', '!' or '?'
// followed by whitespace. Terminal punctuation stays with its sentence and
// fragments of minSentenceLength characters or fewer are dropped.
func SplitSentences(text string) []string {
	text = ingestion.CleanText(text)
	if text == "" {
		return nil
	}

	var sentences []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(strings.TrimRight(s, ".!?")) > minSentenceLength {
			sentences = append(sentences, s)
		}
	}

	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		punct := strings.TrimRight(text[loc[0]:loc[1]], " \t\n\r\f\v")
		add(text[start:loc[0]] + punct)
		start = loc[1]
	}
	add(text[start:])
	return sentences
}

// Chunk splits content into chunks. Sentences are never split. A chunk is
// sealed when the next sentence would push it over the token budget, and
// the next chunk starts with the trailing overlap words of the sealed one.
// Every chunk stays within the budget unless a single sentence exceeds it,
// in which case that sentence forms its own chunk without overlap.
func (c *Chunker) Chunk(content, title string, headers []types.Header, metadata *types.Metadata) []types.ContentChunk {
	sentences := SplitSentences(content)
	if len(sentences) == 0 {
		return []types.ContentChunk{}
	}

	var (
		chunks       []types.ContentChunk
		buffer       []string // words of the chunk being built
		overlapWords int
	)

	seal := func() {
		chunks = append(chunks, c.newChunk(len(chunks)+1, buffer, overlapWords, title, headers, metadata))
	}

	for _, sentence := range sentences {
		words := strings.Fields(sentence)
		if len(buffer) > 0 && estimate(len(buffer)+len(words)) > c.chunkSize {
			seal()
			seed := c.overlapSeed(buffer, len(words))
			buffer = append(append([]string{}, seed...), words...)
			overlapWords = len(seed)
			continue
		}
		buffer = append(buffer, words...)
	}
	if len(buffer) > 0 {
		seal()
	}

	return chunks
}

// overlapSeed returns the trailing words of a sealed chunk to prepend to the
// next one: overlap/1.3 words, at least one, fewer than the whole chunk, and
// trimmed so the seed plus the next sentence still fits the budget.
func (c *Chunker) overlapSeed(sealed []string, nextWords int) []string {
	if c.overlap <= 0 || len(sealed) < 2 {
		return nil
	}
	n := int(float64(c.overlap) / TokensPerWord)
	n = max(1, min(n, len(sealed)-1))
	for n > 0 && estimate(n+nextWords) > c.chunkSize {
		n--
	}
	return sealed[len(sealed)-n:]
}

func (c *Chunker) newChunk(number int, words []string, overlapWords int, title string, headers []types.Header, metadata *types.Metadata) types.ContentChunk {
	content := strings.Join(words, " ")

	meta := metadata.Clone()
	meta.Set("headers", headerList(headers)).
		Set("word_count", len(words)).
		Set("character_count", utf8.RuneCountInString(content)).
		Set("has_headers", len(headers) > 0)

	return types.ContentChunk{
		ChunkNumber:  number,
		Title:        chunkTitle(title, headers),
		Summary:      chunkSummary(content),
		Content:      content,
		TokenCount:   estimate(len(words)),
		Metadata:     meta,
		OverlapWords: overlapWords,
	}
}

// ChunkPage chunks a page, adding source_url and source_title to the
// page metadata carried by every chunk.
func (c *Chunker) ChunkPage(page *types.Page) []types.ContentChunk {
	meta := page.Metadata.Clone()
	meta.Set("source_url", page.URL).Set("source_title", page.Title)
	return c.Chunk(page.Content, page.Title, page.Headers, meta)
}

// chunkTitle picks the first header with the lowest level, or the page title.
func chunkTitle(pageTitle string, headers []types.Header) string {
	best := -1
	for i, h := range headers {
		if best < 0 || h.Level < headers[best].Level {
			best = i
		}
	}
	if best >= 0 && headers[best].Text != "" {
		return headers[best].Text
	}
	return pageTitle
}

// chunkSummary returns the chunk's first sentence, or its leading text,
// capped at maxSummaryLength characters.
func chunkSummary(content string) string {
	if sentences := SplitSentences(content); len(sentences) > 0 {
		return truncate(sentences[0], maxSummaryLength)
	}
	return truncate(content, maxSummaryLength)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

func headerList(headers []types.Header) []types.Header {
	if headers == nil {
		return []types.Header{}
	}
	return headers
}
