package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/wordlist/internal/domain"
)

// SetClues replaces a word's clues and marks them as refreshed. An empty
// list only updates the refresh time.
func (s *Store) SetClues(word string, clues []string) error {
	w := domain.Canonical(word)
	now := time.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("UPDATE words SET clues_last_updated = ? WHERE word = ?", now, w)
	if err != nil {
		return fmt.Errorf("touch clues: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("word %s: %w", w, ErrNotFound)
	}

	if len(clues) > 0 {
		if _, err := tx.Exec("DELETE FROM word_clues WHERE word = ?", w); err != nil {
			return fmt.Errorf("clear clues: %w", err)
		}
	}

	pos := 0
	for _, text := range clues {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		var id int64
		err := tx.QueryRow(`
			INSERT INTO clues (text, last_seen) VALUES (?, ?)
			ON CONFLICT (text) DO UPDATE SET last_seen = excluded.last_seen
			RETURNING id`,
			text, now,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("upsert clue: %w", err)
		}
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO word_clues (word, clue_id, position) VALUES (?, ?, ?)",
			w, id, pos,
		); err != nil {
			return fmt.Errorf("link clue: %w", err)
		}
		pos++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clues: %w", err)
	}
	return nil
}

// GetClues returns the clues of each given word, in stored order
func (s *Store) GetClues(words []string) (map[string][]string, error) {
	out := make(map[string][]string, len(words))
	const batch = 500
	for start := 0; start < len(words); start += batch {
		chunk := words[start:min(start+batch, len(words))]
		args := make([]any, len(chunk))
		for i, w := range chunk {
			args[i] = domain.Canonical(w)
		}

		rows, err := s.db.Query(`
			SELECT wc.word, c.text
			FROM word_clues wc
			JOIN clues c ON c.id = wc.clue_id
			WHERE wc.word IN (`+placeholders(len(chunk))+`)
			ORDER BY wc.word, wc.position`, args...)
		if err != nil {
			return nil, fmt.Errorf("get clues: %w", err)
		}
		for rows.Next() {
			var w, text string
			if err := rows.Scan(&w, &text); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan clue: %w", err)
			}
			out[w] = append(out[w], text)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("get clues: %w", err)
		}
	}
	return out, nil
}

// WordsMissingClues returns up to limit words without clues, least recently
// refreshed first. limit <= 0 means no limit.
func (s *Store) WordsMissingClues(limit int) ([]string, error) {
	query := `
		SELECT w.word FROM words w
		WHERE NOT EXISTS (SELECT 1 FROM word_clues wc WHERE wc.word = w.word)
		ORDER BY w.clues_last_updated IS NOT NULL, w.clues_last_updated, w.word`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list words missing clues: %w", err)
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
