package scorer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/wordlist/internal/classifier"
	"github.com/pbaille/wordlist/internal/embedding"
	"github.com/pbaille/wordlist/internal/registry"
	"github.com/pbaille/wordlist/internal/store"
)

type wordEncoder struct{}

func (wordEncoder) Encode(word string, _ []string) string { return word }

// vectorProvider looks prompts up in a fixed table
type vectorProvider struct {
	vectors map[string][]float64
	calls   int
	failAt  int
}

func (p *vectorProvider) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	p.calls++
	if p.failAt > 0 && p.calls == p.failAt {
		return nil, errors.New("connection reset")
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = p.vectors[t]
	}
	return out, nil
}

var vectors = map[string][]float64{
	"CAT":   {2, 2},
	"DOG":   {1.5, 1},
	"BIRD":  {-0.5, -1},
	"ZEBRA": {-2, -2},
}

type fixture struct {
	store   *store.Store
	reg     *registry.Registry
	modelID int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for w := range vectors {
		_, _, err := s.AddWord(w)
		require.NoError(t, err)
	}

	m := classifier.NewPipeline(classifier.Params{Kernel: classifier.KernelLinear, C: 1}, 0, -1)
	require.NoError(t, m.Fit(
		[][]float64{{1, 1}, {2, 2}, {3, 3}, {-1, -1}, {-2, -2}, {-3, -3}},
		[]int{1, 1, 1, 0, 0, 0},
	))
	reg := registry.New(s, filepath.Join(dir, "models"))
	rec, err := reg.Save(m, classifier.Metadata{TrainedAt: time.Now()}, nil)
	require.NoError(t, err)

	return &fixture{store: s, reg: reg, modelID: rec.ID}
}

func (f *fixture) scorer(p embedding.Provider, chunk int) *Scorer {
	b := embedding.NewBatcher(p, embedding.BatcherConfig{ChunkSize: chunk})
	return New(f.store, f.reg, wordEncoder{}, b, nil)
}

func TestScoreMissing_ScoresAndPersists(t *testing.T) {
	f := setup(t)
	p := &vectorProvider{vectors: vectors}

	got, err := f.scorer(p, 3).ScoreMissing(context.Background(), f.modelID, []string{"CAT", "ZEBRA", "DOG", "BIRD"})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Greater(t, got["CAT"], 0.0)
	assert.Less(t, got["ZEBRA"], 0.0)
	assert.Greater(t, got["DOG"], got["BIRD"])
	assert.Equal(t, 2, p.calls)

	stored, err := f.store.GetScores(f.modelID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestScoreMissing_SecondRunWritesNothing(t *testing.T) {
	f := setup(t)
	p := &vectorProvider{vectors: vectors}
	s := f.scorer(p, 10)
	words := []string{"CAT", "DOG"}

	_, err := s.ScoreMissing(context.Background(), f.modelID, words)
	require.NoError(t, err)
	calls := p.calls

	again, err := s.ScoreMissing(context.Background(), f.modelID, words)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, calls, p.calls, "no embedding calls on rerun")
}

func TestScoreMissing_ResumesAfterFailure(t *testing.T) {
	f := setup(t)
	words := []string{"BIRD", "CAT", "DOG", "ZEBRA"}

	failing := &vectorProvider{vectors: vectors, failAt: 2}
	partial, err := f.scorer(failing, 2).ScoreMissing(context.Background(), f.modelID, words)
	require.Error(t, err)
	assert.Len(t, partial, 2, "first chunk kept")

	missing, err := f.store.GetMissingScores(f.modelID, words)
	require.NoError(t, err)
	assert.Equal(t, []string{"DOG", "ZEBRA"}, missing)

	p := &vectorProvider{vectors: vectors}
	rest, err := f.scorer(p, 2).ScoreMissing(context.Background(), f.modelID, words)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
	assert.Contains(t, rest, "DOG")
	assert.Contains(t, rest, "ZEBRA")
}

func TestScoreMissing_UnknownModel(t *testing.T) {
	f := setup(t)
	_, err := f.scorer(&vectorProvider{vectors: vectors}, 2).ScoreMissing(context.Background(), 99, []string{"CAT"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
