package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Layering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"chunk_size": 300, "chunk_overlap": 10, "max_pages": 20}`), 0644))
	t.Setenv("CHUNK_OVERLAP", "40")
	t.Setenv("MAX_PAGES", "30")

	g := &globalOptions{configPath: path}
	cmd := newChunkCmd(g)
	require.NoError(t, cmd.Flags().Parse([]string{"--chunk-size", "250"}))

	cfg, err := loadConfig(cmd, g)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.ChunkSize)   // flag
	assert.Equal(t, 40, cfg.ChunkOverlap) // env
	assert.Equal(t, 30, cfg.MaxPages)     // env over file
	assert.Equal(t, 1.0, cfg.RateLimit)   // default
}

func TestLoadConfig_UnsetFlagsKeepLowerLayers(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "500")

	g := &globalOptions{}
	cmd := newChunkCmd(g)
	require.NoError(t, cmd.Flags().Parse(nil))

	cfg, err := loadConfig(cmd, g)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.ChunkSize)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	g := &globalOptions{}
	cmd := newChunkCmd(g)
	require.NoError(t, cmd.Flags().Parse([]string{"--chunk-size", "40", "--chunk-overlap", "40"}))

	_, err := loadConfig(cmd, g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_overlap")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	g := &globalOptions{configPath: filepath.Join(t.TempDir(), "absent.json")}
	cmd := newChunkCmd(g)
	require.NoError(t, cmd.Flags().Parse(nil))

	_, err := loadConfig(cmd, g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
