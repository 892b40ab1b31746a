package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/pbaille/wordlist/internal/domain"
)

// AddSource registers a source wordlist. An identical existing source is
// returned as is; a source sharing only some unique fields is a conflict.
func (s *Store) AddSource(name, link, filePath string) (int64, error) {
	var id int64
	err := s.db.QueryRow(
		"SELECT id FROM sources WHERE name = ? AND link = ? AND file_path = ?",
		name, link, filePath,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find source: %w", err)
	}

	res, err := s.db.Exec(
		"INSERT INTO sources (name, link, file_path) VALUES (?, ?, ?)",
		name, link, filePath,
	)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("source %q: %w: name, link or file path already used", name, ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}

	return res.LastInsertId()
}

// ListSources returns all sources
func (s *Store) ListSources() ([]domain.Source, error) {
	rows, err := s.db.Query("SELECT id, name, link, file_path FROM sources ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var src domain.Source
		if err := rows.Scan(&src.ID, &src.Name, &src.Link, &src.FilePath); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}

	return sources, rows.Err()
}

// LinkSourceWord records that a source contains word, with the source's score
func (s *Store) LinkSourceWord(sourceID int64, word string, score *int) error {
	_, err := s.db.Exec(`
		INSERT INTO source_words (source_id, word, score) VALUES (?, ?, ?)
		ON CONFLICT (source_id, word) DO UPDATE SET score = excluded.score`,
		sourceID, domain.Canonical(word), score,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("link %s to source %d: %w", word, sourceID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("link source word: %w", err)
	}
	return nil
}
