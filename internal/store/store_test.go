package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/wordlist/internal/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func addWords(t *testing.T, s *Store, words ...string) {
	t.Helper()
	for _, w := range words {
		_, _, err := s.AddWord(w)
		require.NoError(t, err)
	}
}

func addModel(t *testing.T, s *Store) int64 {
	t.Helper()
	m, err := s.AddModel(
		ModelRecord{TrainingScore: 0.9, TrainedAt: time.Now(), TrainingDuration: time.Minute},
		func(id int64) string { return filepath.Join("models", "x.json") },
		func(string) error { return nil },
	)
	require.NoError(t, err)
	return m.ID
}

func TestAddWord_Canonicalizes(t *testing.T) {
	s := setupTestStore(t)

	w, added, err := s.AddWord("ice cream")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "ICECREAM", w)

	_, added, err = s.AddWord("ICECREAM")
	require.NoError(t, err)
	assert.False(t, added)

	got, err := s.GetWord("IceCream")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnchecked, got.Status)
	assert.True(t, got.CluesLastUpdated.IsZero())
}

func TestAddWord_Invalid(t *testing.T) {
	s := setupTestStore(t)
	_, _, err := s.AddWord("1")
	assert.ErrorIs(t, err, domain.ErrInvalidWord)
}

func TestGetWord_NotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetWord("NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetStatus(t *testing.T) {
	s := setupTestStore(t)
	addWords(t, s, "CAT")
	before, err := s.GetWord("CAT")
	require.NoError(t, err)

	changed, err := s.SetStatus("cat", domain.StatusApproved)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.SetStatus("CAT", domain.StatusApproved)
	require.NoError(t, err)
	assert.False(t, changed, "same status is a no-op")

	after, err := s.GetWord("CAT")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, after.Status)
	assert.False(t, after.StatusLastUpdated.Before(before.StatusLastUpdated))

	// undo
	changed, err = s.SetStatus("CAT", domain.StatusUnchecked)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestSetStatus_Errors(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.SetStatus("GHOST", domain.StatusApproved)
	assert.ErrorIs(t, err, ErrNotFound)

	addWords(t, s, "CAT")
	_, err = s.SetStatus("CAT", domain.Status("maybe"))
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestGetWordsByStatus(t *testing.T) {
	s := setupTestStore(t)
	addWords(t, s, "DOG", "CAT", "OWL")
	_, err := s.SetStatus("OWL", domain.StatusRejected)
	require.NoError(t, err)

	all, err := s.GetWords("")
	require.NoError(t, err)
	assert.Equal(t, []string{"CAT", "DOG", "OWL"}, all)

	rejected, err := s.GetWords(domain.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, []string{"OWL"}, rejected)

	counts, err := s.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.StatusUnchecked])
	assert.Equal(t, 1, counts[domain.StatusRejected])
	assert.Equal(t, 0, counts[domain.StatusApproved])
}

func TestClues(t *testing.T) {
	s := setupTestStore(t)
	addWords(t, s, "CAT", "DOG", "EMU")

	require.NoError(t, s.SetClues("CAT", []string{"Feline", "Pet", " "}))
	require.NoError(t, s.SetClues("DOG", []string{"Pet"}))
	require.NoError(t, s.SetClues("EMU", nil))

	got, err := s.GetWordsAndClues("")
	require.NoError(t, err)
	assert.Equal(t, []string{"Feline", "Pet"}, got["CAT"])
	assert.Equal(t, []string{"Pet"}, got["DOG"])
	assert.Contains(t, got, "EMU")
	assert.Nil(t, got["EMU"])

	w, err := s.GetWord("EMU")
	require.NoError(t, err)
	assert.False(t, w.CluesLastUpdated.IsZero(), "empty fetch still refreshes")

	assert.ErrorIs(t, s.SetClues("GHOST", []string{"x"}), ErrNotFound)
}

func TestWordsMissingClues_OldestFirst(t *testing.T) {
	s := setupTestStore(t)
	addWords(t, s, "CAT", "DOG", "EMU")
	require.NoError(t, s.SetClues("EMU", nil))
	require.NoError(t, s.SetClues("CAT", []string{"Feline"}))

	got, err := s.WordsMissingClues(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"DOG", "EMU"}, got)

	got, err = s.WordsMissingClues(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"DOG"}, got)
}

func TestAddSource(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.AddSource("Crossword Nexus", "https://example.com/cn", "lists/cn.txt")
	require.NoError(t, err)

	again, err := s.AddSource("Crossword Nexus", "https://example.com/cn", "lists/cn.txt")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	_, err = s.AddSource("Other", "https://example.com/cn", "lists/other.txt")
	assert.ErrorIs(t, err, ErrConflict)

	addWords(t, s, "CAT")
	score := 50
	require.NoError(t, s.LinkSourceWord(id, "CAT", &score))
	require.NoError(t, s.LinkSourceWord(id, "CAT", nil))
	assert.ErrorIs(t, s.LinkSourceWord(id, "GHOST", nil), ErrNotFound)

	sources, err := s.ListSources()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "lists/cn.txt", sources[0].FilePath)
}

func TestAddModel_AssignsIDAndPath(t *testing.T) {
	s := setupTestStore(t)
	var written []string

	m, err := s.AddModel(
		ModelRecord{TrainingScore: 0.87, TrainedAt: time.Now(), TrainingDuration: 90 * time.Second, Meta: map[string]any{"kernel": "rbf"}},
		func(id int64) string { return filepath.Join("models", fmt.Sprintf("m%d.json", id)) },
		func(path string) error { written = append(written, path); return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.ID)
	assert.Equal(t, filepath.Join("models", "m1.json"), m.ArtifactPath)
	assert.Equal(t, []string{m.ArtifactPath}, written)

	path, err := s.GetModelArtifactPath(m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ArtifactPath, path)

	got, err := s.GetModel(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.87, got.TrainingScore)
	assert.Equal(t, 90*time.Second, got.TrainingDuration)
	assert.Equal(t, "rbf", got.Meta["kernel"])

	latest, err := s.LatestModelID()
	require.NoError(t, err)
	assert.Equal(t, m.ID, latest)
}

func TestAddModel_WriteFailureRollsBack(t *testing.T) {
	s := setupTestStore(t)
	boom := errors.New("disk full")

	_, err := s.AddModel(ModelRecord{TrainedAt: time.Now()},
		func(int64) string { return "p" },
		func(string) error { return boom },
	)
	assert.ErrorIs(t, err, boom)

	models, err := s.ListModels()
	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestGetModelArtifactPath_NotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetModelArtifactPath(42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetModel(42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LatestModelID()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScores(t *testing.T) {
	s := setupTestStore(t)
	addWords(t, s, "CAT", "DOG", "EMU")
	id := addModel(t, s)

	missing, err := s.GetMissingScores(id, []string{"emu", "CAT", "GHOST", "CAT", "DOG"})
	require.NoError(t, err)
	assert.Equal(t, []string{"EMU", "CAT", "DOG"}, missing)

	require.NoError(t, s.AddScore("CAT", id, 1.25))

	missing, err = s.GetMissingScores(id, []string{"CAT", "DOG", "EMU"})
	require.NoError(t, err)
	assert.Equal(t, []string{"DOG", "EMU"}, missing)

	err = s.AddScore("CAT", id, 3)
	assert.ErrorIs(t, err, ErrScoreExists)
	assert.ErrorIs(t, err, ErrConflict)

	scores, err := s.GetScores(id)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"CAT": 1.25}, scores, "existing score is not overwritten")
}

func TestScores_UnknownModelOrWord(t *testing.T) {
	s := setupTestStore(t)
	addWords(t, s, "CAT")

	_, err := s.GetMissingScores(7, []string{"CAT"})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.AddScore("CAT", 7, 1), ErrNotFound)

	id := addModel(t, s)
	assert.ErrorIs(t, s.AddScore("GHOST", id, 1), ErrNotFound)

	_, err = s.GetRankingRows(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScores_IndependentPerModel(t *testing.T) {
	s := setupTestStore(t)
	addWords(t, s, "CAT")
	first := addModel(t, s)
	second := addModel(t, s)

	require.NoError(t, s.AddScore("CAT", first, 1))

	missing, err := s.GetMissingScores(second, []string{"CAT"})
	require.NoError(t, err)
	assert.Equal(t, []string{"CAT"}, missing)
}

func TestGetRankingRows(t *testing.T) {
	s := setupTestStore(t)
	addWords(t, s, "CAT", "DOG")
	_, err := s.SetStatus("CAT", domain.StatusApproved)
	require.NoError(t, err)
	id := addModel(t, s)
	require.NoError(t, s.AddScore("CAT", id, 0.5))

	rows, err := s.GetRankingRows(id)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "CAT", rows[0].Word)
	assert.Equal(t, domain.StatusApproved, rows[0].Status)
	require.NotNil(t, rows[0].Score)
	assert.Equal(t, 0.5, *rows[0].Score)

	assert.Equal(t, "DOG", rows[1].Word)
	assert.Nil(t, rows[1].Score)
}
