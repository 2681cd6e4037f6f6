package ingestion

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/jonathan/site-ingest/internal/fetch"
	"github.com/jonathan/site-ingest/internal/types"
)

// pageMetadata records the transport and content facts for a scraped page.
func pageMetadata(result *fetch.Result, extracted *Extracted, rendered bool) *types.Metadata {
	m := types.NewMetadata().
		Set("http_status", result.StatusCode).
		Set("content_length", len(result.Body)).
		Set("content_type", result.ContentType).
		Set("last_modified", result.Headers.Get("Last-Modified")).
		Set("headers_count", len(extracted.Headers)).
		Set("word_count", WordCount(extracted.Content)).
		Set("content_hash", computeHash(extracted.Content))
	if rendered {
		m.Set("rendered", true)
	}
	return m
}

// computeHash computes SHA256 hash of content and returns hex string
func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
