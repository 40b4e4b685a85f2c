package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, "none", cfg.Generator.Type)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	require.NotNil(t, cfg.Retrieval.PhraseBoost)
	require.NotNil(t, cfg.Retrieval.StatutoryBoost)
	assert.InDelta(t, 0.3, *cfg.Retrieval.PhraseBoost, 1e-9)
	assert.InDelta(t, 0.2, *cfg.Retrieval.StatutoryBoost, 1e-9)
	assert.Equal(t, "IPC", cfg.Retrieval.StatutoryCategory)
	assert.Equal(t, "data/docstore.json", cfg.Corpus.DocstorePath)
	assert.Equal(t, 800, cfg.Index.ChunkChars)
}

func TestLoadAppliesOpenAIDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
embedder:
  type: openai
  openai:
    model: custom-embed
generator:
  type: openai
  openai: {}
retrieval:
  top_k: 5
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "custom-embed", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 8, cfg.Embedder.OpenAI.TimeoutSecs)

	require.NotNil(t, cfg.Generator.OpenAI)
	assert.Equal(t, "gpt-4o-mini", cfg.Generator.OpenAI.Model)
	assert.Equal(t, 12, cfg.Generator.OpenAI.TimeoutSecs)
	assert.Equal(t, 256, cfg.Generator.OpenAI.MaxTokens)

	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestExplicitZeroBoostsPreserved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
retrieval:
  phrase_boost: 0
  statutory_boost: 0
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Retrieval.PhraseBoost)
	require.NotNil(t, cfg.Retrieval.StatutoryBoost)
	assert.Zero(t, *cfg.Retrieval.PhraseBoost)
	assert.Zero(t, *cfg.Retrieval.StatutoryBoost)
}

func TestLoadInvalidYAMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Retrieval.TopK = 7

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Retrieval.TopK)
	assert.Equal(t, cfg.Corpus.DocstorePath, loaded.Corpus.DocstorePath)
}
