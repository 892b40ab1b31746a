package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pbaille/wordlist/internal/domain"
)

// ModelRecord is the metadata stored for a new model
type ModelRecord struct {
	TrainingScore    float64
	TrainedAt        time.Time
	TrainingDuration time.Duration
	Meta             map[string]any
}

// AddModel assigns the next model id, derives the artifact path with pathFor
// and calls write with it, all inside one transaction. If write fails the
// model row is rolled back.
func (s *Store) AddModel(rec ModelRecord, pathFor func(id int64) string, write func(path string) error) (*domain.Model, error) {
	meta := rec.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal model meta: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"INSERT INTO models (training_score, trained_at, training_duration_ms, meta) VALUES (?, ?, ?, ?)",
		rec.TrainingScore, rec.TrainedAt, rec.TrainingDuration.Milliseconds(), string(metaJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("insert model: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("model id: %w", err)
	}

	path := pathFor(id)
	if _, err := tx.Exec("UPDATE models SET artifact_path = ? WHERE id = ?", path, id); err != nil {
		return nil, fmt.Errorf("set artifact path: %w", err)
	}
	if err := write(path); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit model: %w", err)
	}

	return &domain.Model{
		ID:               id,
		ArtifactPath:     path,
		TrainingScore:    rec.TrainingScore,
		TrainedAt:        rec.TrainedAt,
		TrainingDuration: rec.TrainingDuration.Truncate(time.Millisecond),
		Meta:             meta,
	}, nil
}

// GetModel retrieves a model's metadata
func (s *Store) GetModel(id int64) (*domain.Model, error) {
	row := s.db.QueryRow(
		"SELECT id, artifact_path, training_score, trained_at, training_duration_ms, meta FROM models WHERE id = ?",
		id,
	)
	m, err := scanModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	return m, nil
}

// GetModelArtifactPath returns where the model's artifact is stored
func (s *Store) GetModelArtifactPath(id int64) (string, error) {
	var path string
	err := s.db.QueryRow("SELECT artifact_path FROM models WHERE id = ?", id).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("model %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get artifact path: %w", err)
	}
	return path, nil
}

// ListModels returns all models, newest first
func (s *Store) ListModels() ([]domain.Model, error) {
	rows, err := s.db.Query(
		"SELECT id, artifact_path, training_score, trained_at, training_duration_ms, meta FROM models ORDER BY id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var models []domain.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		models = append(models, *m)
	}
	return models, rows.Err()
}

// LatestModelID returns the id of the most recent model
func (s *Store) LatestModelID() (int64, error) {
	var id int64
	err := s.db.QueryRow("SELECT id FROM models ORDER BY id DESC LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("no models: %w", ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("latest model: %w", err)
	}
	return id, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanModel(row scanner) (*domain.Model, error) {
	var m domain.Model
	var durMS int64
	var meta string
	if err := row.Scan(&m.ID, &m.ArtifactPath, &m.TrainingScore, &m.TrainedAt, &durMS, &meta); err != nil {
		return nil, err
	}
	m.TrainingDuration = time.Duration(durMS) * time.Millisecond
	if err := json.Unmarshal([]byte(meta), &m.Meta); err != nil {
		return nil, fmt.Errorf("decode model meta: %w", err)
	}
	return &m, nil
}

func (s *Store) modelExists(id int64) error {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM models WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("model %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("find model: %w", err)
	}
	return nil
}
