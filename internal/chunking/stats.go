package chunking

import (
	"unicode/utf8"

	"github.com/jonathan/site-ingest/internal/types"
)

// Stats summarizes a set of chunks.
type Stats struct {
	TotalChunks         int     `json:"total_chunks"`
	TotalTokens         int     `json:"total_tokens"`
	AvgTokensPerChunk   float64 `json:"avg_tokens_per_chunk"`
	MinTokens           int     `json:"min_tokens"`
	MaxTokens           int     `json:"max_tokens"`
	TotalCharacters     int     `json:"total_characters"`
	ChunksWithTitles    int     `json:"chunks_with_titles"`
	ChunksWithSummaries int     `json:"chunks_with_summaries"`
}

// ComputeStats returns token and coverage statistics for chunks.
func ComputeStats(chunks []types.ContentChunk) Stats {
	var s Stats
	if len(chunks) == 0 {
		return s
	}

	s.TotalChunks = len(chunks)
	s.MinTokens = chunks[0].TokenCount
	for _, c := range chunks {
		s.TotalTokens += c.TokenCount
		s.MinTokens = min(s.MinTokens, c.TokenCount)
		s.MaxTokens = max(s.MaxTokens, c.TokenCount)
		s.TotalCharacters += utf8.RuneCountInString(c.Content)
		if c.Title != "" {
			s.ChunksWithTitles++
		}
		if c.Summary != "" {
			s.ChunksWithSummaries++
		}
	}
	s.AvgTokensPerChunk = float64(s.TotalTokens) / float64(s.TotalChunks)
	return s
}
