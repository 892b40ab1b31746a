package store

import (
	"database/sql"
	"fmt"

	"github.com/pbaille/wordlist/internal/domain"
)

// GetMissingScores returns the words among words that are stored but have no
// score for modelID, in input order without duplicates. Words unknown to the
// store are left out.
func (s *Store) GetMissingScores(modelID int64, words []string) ([]string, error) {
	if err := s.modelExists(modelID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT w.word
		FROM words w
		LEFT JOIN word_model_scores s ON s.word = w.word AND s.model_id = ?
		WHERE s.word IS NULL`, modelID)
	if err != nil {
		return nil, fmt.Errorf("missing scores: %w", err)
	}
	defer rows.Close()

	missing := map[string]bool{}
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		missing[w] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("missing scores: %w", err)
	}

	var out []string
	for _, w := range words {
		w = domain.Canonical(w)
		if missing[w] {
			out = append(out, w)
			delete(missing, w)
		}
	}
	return out, nil
}

// AddScore records the raw score of word under modelID. A pair that already
// has a score yields ErrScoreExists; an unknown word or model ErrNotFound.
func (s *Store) AddScore(word string, modelID int64, score float64) error {
	_, err := s.db.Exec(
		"INSERT INTO word_model_scores (word, model_id, score) VALUES (?, ?, ?)",
		domain.Canonical(word), modelID, score,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("score %s for model %d: %w", word, modelID, ErrScoreExists)
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("score %s for model %d: word or model %w", word, modelID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

// GetScores returns every recorded score for modelID
func (s *Store) GetScores(modelID int64) (map[string]float64, error) {
	if err := s.modelExists(modelID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query("SELECT word, score FROM word_model_scores WHERE model_id = ?", modelID)
	if err != nil {
		return nil, fmt.Errorf("get scores: %w", err)
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var w string
		var v float64
		if err := rows.Scan(&w, &v); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out[w] = v
	}
	return out, rows.Err()
}

// GetRankingRows returns every word with its status and its score under
// modelID, if any
func (s *Store) GetRankingRows(modelID int64) ([]domain.ScoredWord, error) {
	if err := s.modelExists(modelID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT w.word, w.status, s.score
		FROM words w
		LEFT JOIN word_model_scores s ON s.word = w.word AND s.model_id = ?
		ORDER BY w.word`, modelID)
	if err != nil {
		return nil, fmt.Errorf("ranking rows: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoredWord
	for rows.Next() {
		var sw domain.ScoredWord
		var score sql.NullFloat64
		if err := rows.Scan(&sw.Word, &sw.Status, &score); err != nil {
			return nil, fmt.Errorf("scan ranking row: %w", err)
		}
		if score.Valid {
			v := score.Float64
			sw.Score = &v
		}
		out = append(out, sw)
	}
	return out, rows.Err()
}
