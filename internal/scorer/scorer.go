// Package scorer computes and persists raw classifier scores for words that
// do not have one yet under a given model.
package scorer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pbaille/wordlist/internal/classifier"
)

// Store is the persistence the scorer reads from and writes to
type Store interface {
	GetMissingScores(modelID int64, words []string) ([]string, error)
	GetClues(words []string) (map[string][]string, error)
	AddScore(word string, modelID int64, score float64) error
}

// ModelLoader loads a stored model by id
type ModelLoader interface {
	Load(id int64) (classifier.Model, error)
}

// Encoder turns a word and its clues into a prompt
type Encoder interface {
	Encode(word string, clues []string) string
}

// Embedder embeds prompts chunk by chunk
type Embedder interface {
	ChunkSize() int
	EmbedEach(ctx context.Context, prompts []string, fn func(offset int, vectors [][]float64) error) error
}

// Scorer runs a model's decision function over words
type Scorer struct {
	store   Store
	models  ModelLoader
	encoder Encoder
	embed   Embedder
	logger  *slog.Logger
}

// New creates a Scorer
func New(store Store, models ModelLoader, encoder Encoder, embed Embedder, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{store: store, models: models, encoder: encoder, embed: embed, logger: logger}
}

// ScoreMissing scores the words that have no score under modelID yet and
// returns the new scores. Each score is stored as soon as its chunk is
// embedded, so an interrupted run resumes where it stopped. On error the
// scores saved so far are returned along with it.
func (s *Scorer) ScoreMissing(ctx context.Context, modelID int64, words []string) (map[string]float64, error) {
	missing, err := s.store.GetMissingScores(modelID, words)
	if err != nil {
		return nil, fmt.Errorf("find missing scores: %w", err)
	}
	log := s.logger.With("model", modelID, "run", uuid.New().String()[:8])
	if len(missing) == 0 {
		log.Info("nothing to score", "requested", len(words))
		return map[string]float64{}, nil
	}

	model, err := s.models.Load(modelID)
	if err != nil {
		return nil, err
	}
	log.Info("scoring words", "missing", len(missing), "requested", len(words))

	prompts := make([]string, len(missing))
	for start := 0; start < len(missing); start += s.embed.ChunkSize() {
		chunk := missing[start:min(start+s.embed.ChunkSize(), len(missing))]
		clues, err := s.store.GetClues(chunk)
		if err != nil {
			return nil, fmt.Errorf("load clues: %w", err)
		}
		for i, w := range chunk {
			prompts[start+i] = s.encoder.Encode(w, clues[w])
		}
	}

	scores := make(map[string]float64, len(missing))
	err = s.embed.EmbedEach(ctx, prompts, func(offset int, vectors [][]float64) error {
		dec, err := model.DecisionFunction(vectors)
		if err != nil {
			return fmt.Errorf("decision function: %w", err)
		}
		for i, v := range dec {
			w := missing[offset+i]
			if err := s.store.AddScore(w, modelID, v); err != nil {
				return fmt.Errorf("save score: %w", err)
			}
			scores[w] = v
			log.Info("score saved", "word", w, "score", v)
		}
		return ctx.Err()
	})
	if err != nil {
		return scores, err
	}

	log.Info("scoring complete", "scored", len(scores))
	return scores, nil
}
