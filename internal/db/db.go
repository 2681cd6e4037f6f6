// Package db provides PostgreSQL persistence for sites, pages, chunks,
// the failed-URL ledger and scrape job status.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Schema returns the DDL with the embedding column sized to dimension.
func Schema(dimension int) string {
	return strings.ReplaceAll(schemaSQL, "__EMBEDDING_DIMENSION__", strconv.Itoa(dimension))
}

// Migrate creates all tables if they do not exist, then makes sure the
// embedding column matches dimension.
func (db *DB) Migrate(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", dimension)
	}
	if _, err := db.pool.Exec(ctx, Schema(dimension)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	if _, err := db.EnsureEmbeddingDimension(ctx, dimension); err != nil {
		return err
	}
	return nil
}

// EnsureEmbeddingDimension resizes page_chunks.embedding when the configured
// model dimension changed. Existing embeddings are cleared because vectors
// from another model are not comparable. Returns true when the column changed.
func (db *DB) EnsureEmbeddingDimension(ctx context.Context, dimension int) (bool, error) {
	// pgvector stores the dimension in atttypmod for vector(N) columns
	var current int
	err := db.pool.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute
		 WHERE attrelid = 'page_chunks'::regclass AND attname = 'embedding'`,
	).Scan(&current)
	if err != nil {
		return false, fmt.Errorf("failed to read embedding dimension: %w", err)
	}
	if current == dimension {
		return false, nil
	}

	stmts := []string{
		`DROP INDEX IF EXISTS page_chunks_embedding_idx`,
		`UPDATE page_chunks SET embedding = NULL`,
		fmt.Sprintf(`ALTER TABLE page_chunks ALTER COLUMN embedding TYPE vector(%d)`, dimension),
		`CREATE INDEX page_chunks_embedding_idx ON page_chunks USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return false, fmt.Errorf("failed to migrate embedding dimension (%d -> %d): %w", current, dimension, err)
		}
	}
	return true, nil
}
