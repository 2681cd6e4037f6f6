package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/site-ingest/internal/types"
	"github.com/pgvector/pgvector-go"
)

// -----------------------------------------------------------------------------
// Page and Chunk Methods
// -----------------------------------------------------------------------------

// UpsertPageWithChunks stores a page and its chunks in one transaction.
// Re-scraping the same (site, url) replaces the page content, replaces
// chunks by chunk_number and deletes chunks beyond the new count.
func (db *DB) UpsertPageWithChunks(ctx context.Context, siteID int64, page *types.Page, chunks []types.ContentChunk) (int64, error) {
	metadata, err := json.Marshal(page.Metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal page metadata: %w", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var pageID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO site_pages (site_id, url, title, summary, content, metadata, scraped_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (site_id, url) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			scraped_at = NOW()
		 RETURNING id`,
		siteID, page.URL, page.Title, page.Summary, page.Content, metadataJSON(metadata),
	).Scan(&pageID)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert page %s: %w", page.URL, err)
	}

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		chunkMeta, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}
		batch.Queue(
			`INSERT INTO page_chunks (id, page_id, chunk_number, title, summary, content, token_count, embedding, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			 ON CONFLICT (page_id, chunk_number) DO UPDATE SET
				title = EXCLUDED.title,
				summary = EXCLUDED.summary,
				content = EXCLUDED.content,
				token_count = EXCLUDED.token_count,
				embedding = EXCLUDED.embedding,
				metadata = EXCLUDED.metadata,
				created_at = NOW()`,
			uuid.New(), pageID, chunk.ChunkNumber, chunk.Title, chunk.Summary, chunk.Content,
			chunk.TokenCount, embeddingValue(chunk.Embedding), metadataJSON(chunkMeta),
		)
	}
	batch.Queue(`DELETE FROM page_chunks WHERE page_id = $1 AND chunk_number > $2`, pageID, len(chunks))

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to store chunks for %s: %w", page.URL, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit page %s: %w", page.URL, err)
	}
	return pageID, nil
}

// ListPages returns a site's stored pages with their chunk counts
func (db *DB) ListPages(ctx context.Context, siteID int64) ([]StoredPage, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT p.id, p.site_id, p.url, p.title, COUNT(c.id), p.scraped_at
		 FROM site_pages p
		 LEFT JOIN page_chunks c ON c.page_id = p.id
		 WHERE p.site_id = $1
		 GROUP BY p.id
		 ORDER BY p.scraped_at, p.id`,
		siteID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []StoredPage
	for rows.Next() {
		var p StoredPage
		if err := rows.Scan(&p.ID, &p.SiteID, &p.URL, &p.Title, &p.ChunkCount, &p.ScrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// GetChunks returns a page's chunks in chunk_number order
func (db *DB) GetChunks(ctx context.Context, pageID int64) ([]types.ContentChunk, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT chunk_number, title, summary, content, token_count, metadata
		 FROM page_chunks WHERE page_id = $1 ORDER BY chunk_number`,
		pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []types.ContentChunk
	for rows.Next() {
		var c types.ContentChunk
		var meta []byte
		if err := rows.Scan(&c.ChunkNumber, &c.Title, &c.Summary, &c.Content, &c.TokenCount, &meta); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		c.Metadata = &types.Metadata{}
		if err := json.Unmarshal(meta, c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode chunk metadata: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// embeddingValue maps a missing embedding to NULL
func embeddingValue(v []float32) any {
	if v == nil {
		return nil
	}
	return pgvector.NewVector(v)
}

// metadataJSON maps a nil metadata bag to an empty object
func metadataJSON(b []byte) []byte {
	if len(b) == 0 || string(b) == "null" {
		return []byte("{}")
	}
	return b
}
