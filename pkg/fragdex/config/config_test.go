package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Store.Host)
	assert.Equal(t, 6334, cfg.Store.Port)
	assert.Equal(t, "fragdex", cfg.Store.Collection)
	assert.Equal(t, uint64(1536), cfg.Store.VectorSize)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.APIKeyEnv)
	assert.Equal(t, 64, cfg.Embedder.BatchSize)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fragdex.yaml")
	data := []byte(`
store:
  host: qdrant.internal
  port: 7334
  collection: reports
embedder:
  model: text-embedding-3-large
  batch_size: 16
indexer:
  workers: 4
  summarize: true
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "qdrant.internal", cfg.Store.Host)
	assert.Equal(t, 7334, cfg.Store.Port)
	assert.Equal(t, "reports", cfg.Store.Collection)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedder.Model)
	assert.Equal(t, 16, cfg.Embedder.BatchSize)
	assert.Equal(t, 4, cfg.Indexer.Workers)
	assert.True(t, cfg.Indexer.Summarize)

	// Unset keys still fall back to defaults.
	assert.Equal(t, uint64(1536), cfg.Store.VectorSize)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "fragdex", cfg.Store.Collection)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FRAGDEX_STORE_COLLECTION", "from_env")
	t.Setenv("FRAGDEX_STORE_PORT", "9999")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.Store.Collection)
	assert.Equal(t, 9999, cfg.Store.Port)
}
