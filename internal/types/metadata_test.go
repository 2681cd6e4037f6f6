package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_PreservesInsertionOrder(t *testing.T) {
	m := NewMetadata().
		Set("zeta", 1).
		Set("alpha", "two").
		Set("mid", true)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":"two","mid":true}`, string(data))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())
}

func TestMetadata_ResetKeepsPosition(t *testing.T) {
	m := NewMetadata().Set("a", 1).Set("b", 2).Set("a", 3)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"b":2}`, string(data))
}

func TestMetadata_UnmarshalKeepsDocumentOrder(t *testing.T) {
	var m Metadata
	err := json.Unmarshal([]byte(`{"second":2,"first":{"nested":[1,2]},"third":"x"}`), &m)
	require.NoError(t, err)

	assert.Equal(t, []string{"second", "first", "third"}, m.Keys())
	v, ok := m.Get("third")
	require.True(t, ok)
	assert.Equal(t, "x", v)
}

func TestMetadata_UnmarshalRejectsNonObject(t *testing.T) {
	var m Metadata
	err := json.Unmarshal([]byte(`[1,2,3]`), &m)
	assert.Error(t, err)
}

func TestMetadata_MergeAndClone(t *testing.T) {
	base := NewMetadata().Set("http_status", 200).Set("word_count", 10)
	clone := base.Clone().Merge(NewMetadata().Set("word_count", 12).Set("has_headers", false))

	assert.Equal(t, []string{"http_status", "word_count", "has_headers"}, clone.Keys())
	v, _ := clone.Get("word_count")
	assert.Equal(t, 12, v)

	// original untouched
	v, _ = base.Get("word_count")
	assert.Equal(t, 10, v)
	assert.Equal(t, 2, base.Len())
}

func TestMetadata_NilIsEmptyObject(t *testing.T) {
	var m *Metadata
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	page := Page{URL: "https://example.com"}
	data, err = json.Marshal(page)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"metadata":null`)
	assert.Equal(t, 0, m.Len())
}
