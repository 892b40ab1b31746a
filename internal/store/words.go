package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pbaille/wordlist/internal/domain"
)

// AddWord inserts word as unchecked. It reports false when the word was
// already present.
func (s *Store) AddWord(word string) (string, bool, error) {
	w, err := domain.CanonicalWord(word)
	if err != nil {
		return "", false, err
	}
	now := time.Now()

	res, err := s.db.Exec(
		"INSERT OR IGNORE INTO words (word, time_added, status, status_last_updated) VALUES (?, ?, ?, ?)",
		w, now, domain.StatusUnchecked, now,
	)
	if err != nil {
		return "", false, fmt.Errorf("insert word: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("insert word: %w", err)
	}
	return w, n == 1, nil
}

// GetWord retrieves a word with its clues
func (s *Store) GetWord(word string) (*domain.Word, error) {
	w := domain.Canonical(word)

	var out domain.Word
	var cluesUpdated sql.NullTime
	err := s.db.QueryRow(
		"SELECT word, status, status_last_updated, clues_last_updated, time_added FROM words WHERE word = ?",
		w,
	).Scan(&out.Text, &out.Status, &out.StatusLastUpdated, &cluesUpdated, &out.TimeAdded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("word %s: %w", w, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get word: %w", err)
	}
	if cluesUpdated.Valid {
		out.CluesLastUpdated = cluesUpdated.Time
	}

	clues, err := s.GetClues([]string{w})
	if err != nil {
		return nil, err
	}
	out.Clues = clues[w]

	return &out, nil
}

// GetWords lists words with the given status, or all words when status is
// empty, in alphabetical order
func (s *Store) GetWords(status domain.Status) ([]string, error) {
	query := "SELECT word FROM words ORDER BY word"
	var args []any
	if status != "" {
		query = "SELECT word FROM words WHERE status = ? ORDER BY word"
		args = append(args, status)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list words: %w", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		words = append(words, w)
	}

	return words, rows.Err()
}

// GetWordsAndClues maps each word with the given status (all when empty) to
// its clues. Words without clues map to nil.
func (s *Store) GetWordsAndClues(status domain.Status) (map[string][]string, error) {
	query := `
		SELECT w.word, c.text
		FROM words w
		LEFT JOIN word_clues wc ON wc.word = w.word
		LEFT JOIN clues c ON c.id = wc.clue_id`
	var args []any
	if status != "" {
		query += " WHERE w.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY w.word, wc.position"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list words and clues: %w", err)
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var w string
		var clue sql.NullString
		if err := rows.Scan(&w, &clue); err != nil {
			return nil, fmt.Errorf("scan word clue: %w", err)
		}
		if clue.Valid {
			out[w] = append(out[w], clue.String)
		} else if _, ok := out[w]; !ok {
			out[w] = nil
		}
	}

	return out, rows.Err()
}

// SetStatus changes a word's status. It reports false when the status was
// already the requested one.
func (s *Store) SetStatus(word string, status domain.Status) (bool, error) {
	if _, err := domain.ParseStatus(string(status)); err != nil {
		return false, err
	}
	w := domain.Canonical(word)

	var current domain.Status
	err := s.db.QueryRow("SELECT status FROM words WHERE word = ?", w).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("word %s: %w", w, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("get status: %w", err)
	}
	if current == status {
		return false, nil
	}

	_, err = s.db.Exec(
		"UPDATE words SET status = ?, status_last_updated = ? WHERE word = ?",
		status, time.Now(), w,
	)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	return true, nil
}

// CountByStatus returns the number of words per status
func (s *Store) CountByStatus() (map[domain.Status]int, error) {
	rows, err := s.db.Query("SELECT status, COUNT(*) FROM words GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count words: %w", err)
	}
	defer rows.Close()

	out := map[domain.Status]int{
		domain.StatusApproved:  0,
		domain.StatusRejected:  0,
		domain.StatusUnchecked: 0,
	}
	for rows.Next() {
		var st domain.Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[st] = n
	}

	return out, rows.Err()
}
