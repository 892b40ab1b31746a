// Package embedding turns prompt strings into numeric vectors through an
// external embeddings API.
package embedding

import (
	"context"
	"errors"
)

var (
	// ErrMissingAPIKey is returned when a client is built without credentials
	ErrMissingAPIKey = errors.New("missing embedding api key")
	// ErrCountMismatch is returned when a provider answers with a different
	// number of vectors than texts it was given
	ErrCountMismatch = errors.New("embedding count mismatch")
	// ErrDimensionMismatch is returned when vectors of one call differ in length
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Provider embeds a batch of texts. Implementations return exactly one
// vector per text, in input order, or an error and no vectors.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}
