package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/wordlist/internal/classifier"
	"github.com/pbaille/wordlist/internal/store"
)

func setup(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s, filepath.Join(dir, "models")), dir
}

func fittedModel(t *testing.T) *classifier.Pipeline {
	t.Helper()
	m := classifier.NewPipeline(classifier.Params{Kernel: classifier.KernelLinear, C: 1}, 0, -1)
	X := [][]float64{{1, 1}, {2, 2}, {-1, -1}, {-2, -2}}
	require.NoError(t, m.Fit(X, []int{1, 1, 0, 0}))
	return m
}

func TestSaveLoad(t *testing.T) {
	r, dir := setup(t)
	model := fittedModel(t)
	md := classifier.Metadata{
		RunID:            "run",
		TestScore:        0.75,
		TrainedAt:        time.Now(),
		TrainingDuration: 3 * time.Second,
		BestParams:       model.SVC.Params,
	}

	rec, err := r.Save(model, md, map[string]any{"embedding_model": "test-embed"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, filepath.Join(dir, "models", "1.json"), rec.ArtifactPath)
	assert.Equal(t, 0.75, rec.TrainingScore)
	assert.Equal(t, "test-embed", rec.Meta["embedding_model"])
	assert.FileExists(t, rec.ArtifactPath)

	path, err := r.GetArtifactPath(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ArtifactPath(rec.ID), path)

	loaded, err := r.Load(rec.ID)
	require.NoError(t, err)
	got, err := loaded.DecisionFunction([][]float64{{3, 3}, {-3, -3}})
	require.NoError(t, err)
	want, err := model.DecisionFunction([][]float64{{3, 3}, {-3, -3}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-12)

	stored, err := r.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "run", stored.Meta["run_id"])
	assert.Equal(t, 3.0, stored.Meta["training_duration_seconds"])
}

func TestSave_IDsIncrease(t *testing.T) {
	r, _ := setup(t)
	model := fittedModel(t)

	first, err := r.Save(model, classifier.Metadata{TrainedAt: time.Now()}, nil)
	require.NoError(t, err)
	second, err := r.Save(model, classifier.Metadata{TrainedAt: time.Now()}, nil)
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
	assert.NotEqual(t, first.ArtifactPath, second.ArtifactPath)
}

func TestSave_UnfittedModel(t *testing.T) {
	r, dir := setup(t)
	m := classifier.NewPipeline(classifier.Params{Kernel: classifier.KernelLinear, C: 1}, 0, -1)

	_, err := r.Save(m, classifier.Metadata{}, nil)
	assert.ErrorIs(t, err, classifier.ErrNotFitted)
	_, statErr := os.Stat(filepath.Join(dir, "models", "1.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestUnknownModel(t *testing.T) {
	r, _ := setup(t)

	_, err := r.GetArtifactPath(9)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = r.Load(9)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
