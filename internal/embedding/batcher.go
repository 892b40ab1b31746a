package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Batcher defaults
const (
	DefaultChunkSize = 1500
	DefaultPace      = 500 * time.Millisecond
)

// Batcher splits prompt lists into fixed-size chunks, issues one provider
// call per chunk and pauses between consecutive calls.
//
// A failed chunk aborts the whole call. There is no chunk-level retry:
// callers re-run the operation.
type Batcher struct {
	provider  Provider
	chunkSize int
	pace      time.Duration
	logger    *slog.Logger

	// sleep waits between chunks; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// BatcherConfig configures a Batcher
type BatcherConfig struct {
	ChunkSize int
	Pace      time.Duration
	Logger    *slog.Logger
}

// NewBatcher creates a Batcher around provider
func NewBatcher(provider Provider, cfg BatcherConfig) *Batcher {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Pace < 0 {
		cfg.Pace = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Batcher{
		provider:  provider,
		chunkSize: cfg.ChunkSize,
		pace:      cfg.Pace,
		logger:    cfg.Logger,
		sleep:     sleepContext,
	}
}

// ChunkSize returns the number of prompts sent per provider call
func (b *Batcher) ChunkSize() int {
	return b.chunkSize
}

// Embed returns one vector per prompt, in prompt order
func (b *Batcher) Embed(ctx context.Context, prompts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(prompts))
	err := b.EmbedEach(ctx, prompts, func(_ int, vectors [][]float64) error {
		out = append(out, vectors...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedEach embeds prompts chunk by chunk, calling fn with the offset of the
// chunk's first prompt and its vectors before moving to the next chunk.
// An error from fn stops processing and is returned as is.
func (b *Batcher) EmbedEach(ctx context.Context, prompts []string, fn func(offset int, vectors [][]float64) error) error {
	dim := -1
	for start := 0; start < len(prompts); start += b.chunkSize {
		if start > 0 && b.pace > 0 {
			b.logger.Debug("pacing embedding calls", "delay", b.pace)
			if err := b.sleep(ctx, b.pace); err != nil {
				return err
			}
		}

		end := min(start+b.chunkSize, len(prompts))
		chunk := prompts[start:end]

		vectors, err := b.provider.EmbedBatch(ctx, chunk)
		if err != nil {
			return fmt.Errorf("embed chunk %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(chunk) {
			return fmt.Errorf("embed chunk %d-%d: %w: want %d, got %d", start, end, ErrCountMismatch, len(chunk), len(vectors))
		}
		for i, v := range vectors {
			if dim == -1 {
				dim = len(v)
			}
			if len(v) != dim || dim == 0 {
				return fmt.Errorf("embed chunk %d-%d: %w: prompt %d has %d values, want %d", start, end, ErrDimensionMismatch, start+i, len(v), dim)
			}
		}

		b.logger.Debug("embedded chunk", "from", start, "to", end, "total", len(prompts))

		if err := fn(start, vectors); err != nil {
			return err
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
