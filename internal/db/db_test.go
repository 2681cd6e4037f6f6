package db

import (
	"encoding/json"
	"testing"

	"github.com/jonathan/site-ingest/internal/types"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_SizesEmbeddingColumn(t *testing.T) {
	ddl := Schema(384)
	assert.Contains(t, ddl, "embedding     vector(384)")
	assert.NotContains(t, ddl, "__EMBEDDING_DIMENSION__")
	for _, table := range []string{"sites", "site_pages", "page_chunks", "failed_urls", "scrape_jobs"} {
		assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
}

func TestEmbeddingValue(t *testing.T) {
	assert.Nil(t, embeddingValue(nil))

	v, ok := embeddingValue([]float32{1, 2}).(pgvector.Vector)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, v.Slice())
}

func TestMetadataJSON(t *testing.T) {
	var nilMeta *types.Metadata
	b, err := json.Marshal(nilMeta)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(metadataJSON(b)))

	b, err = json.Marshal(types.NewMetadata().Set("word_count", 3))
	require.NoError(t, err)
	assert.Equal(t, `{"word_count":3}`, string(metadataJSON(b)))
}

func TestJobStatusConstants(t *testing.T) {
	statuses := []string{JobPending, JobRunning, JobCompleted, JobFailed}
	for _, s := range statuses {
		assert.Contains(t, Schema(768), "'"+s+"'")
	}
}
