package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/wordlist/internal/classifier"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedding.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedding.APIKeyEnv)
	assert.Equal(t, 1500, cfg.Embedding.ChunkSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Embedding.Pace)
	assert.Equal(t, 0.2, cfg.Training.TestRatio)
	assert.Equal(t, int64(42), cfg.Training.Seed)
	assert.Equal(t, 6, cfg.Prompt.MaxClues)
	assert.Equal(t, 25, cfg.Ranking.Neutral)
	assert.Equal(t, 10, cfg.Ranking.Rejected.Hi)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wordlist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
embedding:
  provider: voyage
  chunk_size: 100
  pace: 2s
training:
  folds: 3
  grid:
    kernel: [poly]
    degree: [2, 3]
    gamma: [scale, 0.01]
    C: [1]
ranking:
  approved: {lo: 30, hi: 50}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://api.voyageai.com/v1", cfg.Embedding.BaseURL)
	assert.Equal(t, "voyage-3-lite", cfg.Embedding.Model)
	assert.Equal(t, "VOYAGE_API_KEY", cfg.Embedding.APIKeyEnv)
	assert.Equal(t, 100, cfg.Embedding.ChunkSize)
	assert.Equal(t, 2*time.Second, cfg.Embedding.Pace)
	assert.Equal(t, 3, cfg.Training.Folds)
	assert.Equal(t, 0.2, cfg.Training.TestRatio, "unset keys keep defaults")
	assert.Equal(t, []string{classifier.GammaScale, "0.01"}, cfg.Training.Grid.Gamma)
	assert.Equal(t, 30, cfg.Ranking.Approved.Lo)
	assert.Equal(t, 0, cfg.Ranking.Unchecked.Lo)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("training:\n  test_ratio: 1.5\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_UnknownProviderNeedsBaseURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedding:\n  provider: local\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wordlist.yaml")
	cfg := Default()
	cfg.Server.Addr = ":9999"
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", got.Server.Addr)
	assert.Equal(t, cfg.Training.Grid, got.Training.Grid)
}

func TestAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Embedding.APIKeyEnv = "WORDLIST_TEST_KEY"

	t.Setenv("WORDLIST_TEST_KEY", "")
	_, err := cfg.APIKey()
	assert.ErrorIs(t, err, ErrMissingCredential)

	t.Setenv("WORDLIST_TEST_KEY", "secret")
	key, err := cfg.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "secret", key)
}
