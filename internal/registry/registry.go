// Package registry saves trained classifiers as artifacts on disk, keyed by
// the integer model id the store assigns.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pbaille/wordlist/internal/classifier"
	"github.com/pbaille/wordlist/internal/domain"
	"github.com/pbaille/wordlist/internal/store"
)

// Store is the model metadata storage the registry needs
type Store interface {
	AddModel(rec store.ModelRecord, pathFor func(id int64) string, write func(path string) error) (*domain.Model, error)
	GetModel(id int64) (*domain.Model, error)
	GetModelArtifactPath(id int64) (string, error)
}

// Registry persists and loads model artifacts
type Registry struct {
	store    Store
	dir      string
	newModel func() classifier.Model
}

// New creates a Registry writing artifacts under dir
func New(s Store, dir string) *Registry {
	return &Registry{
		store:    s,
		dir:      dir,
		newModel: func() classifier.Model { return &classifier.Pipeline{} },
	}
}

// ArtifactPath is the canonical artifact location for a model id
func (r *Registry) ArtifactPath(id int64) string {
	return filepath.Join(r.dir, fmt.Sprintf("%d.json", id))
}

// Save stores model with its training metadata and returns the new record.
// extra entries are merged into the stored metadata.
func (r *Registry) Save(model classifier.Model, md classifier.Metadata, extra map[string]any) (*domain.Model, error) {
	data, err := model.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialize model: %w", err)
	}
	meta, err := metaMap(md)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		meta[k] = v
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}

	return r.store.AddModel(store.ModelRecord{
		TrainingScore:    md.TestScore,
		TrainedAt:        md.TrainedAt,
		TrainingDuration: md.TrainingDuration,
		Meta:             meta,
	}, r.ArtifactPath, func(path string) error {
		return writeFileAtomic(path, data)
	})
}

// Load reads the artifact of a stored model
func (r *Registry) Load(id int64) (classifier.Model, error) {
	path, err := r.GetArtifactPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %d: %w", id, err)
	}
	m := r.newModel()
	if err := m.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("load model %d: %w", id, err)
	}
	return m, nil
}

// GetArtifactPath returns the stored artifact path, or store.ErrNotFound
func (r *Registry) GetArtifactPath(id int64) (string, error) {
	return r.store.GetModelArtifactPath(id)
}

// Get returns a model's metadata record
func (r *Registry) Get(id int64) (*domain.Model, error) {
	return r.store.GetModel(id)
}

func metaMap(md classifier.Metadata) (map[string]any, error) {
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	out["training_duration_seconds"] = md.TrainingDuration.Round(time.Second).Seconds()
	delete(out, "training_duration")
	return out, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}
