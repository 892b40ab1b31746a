package embedding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider encodes each text's numeric suffix as its vector
type fakeProvider struct {
	calls  [][]string
	failAt int
	drop   bool
}

func (f *fakeProvider) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	f.calls = append(f.calls, texts)
	if f.failAt > 0 && len(f.calls) == f.failAt {
		return nil, errors.New("provider unavailable")
	}
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		n, _ := strconv.Atoi(t[1:])
		out = append(out, []float64{float64(n), 1})
	}
	if f.drop {
		out = out[:len(out)-1]
	}
	return out, nil
}

func newTestBatcher(p Provider, size int) (*Batcher, *[]time.Duration) {
	b := NewBatcher(p, BatcherConfig{ChunkSize: size, Pace: time.Second})
	var slept []time.Duration
	b.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return b, &slept
}

func prompts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("p%d", i)
	}
	return out
}

func TestEmbed_PreservesOrderAcrossChunkSizes(t *testing.T) {
	for _, size := range []int{1, 2, 3, 7, 10, 1500} {
		t.Run(strconv.Itoa(size), func(t *testing.T) {
			p := &fakeProvider{}
			b, _ := newTestBatcher(p, size)

			in := prompts(10)
			got, err := b.Embed(context.Background(), in)
			require.NoError(t, err)
			require.Len(t, got, len(in))
			for i, v := range got {
				assert.Equal(t, float64(i), v[0])
			}
			assert.Len(t, p.calls, (len(in)+size-1)/size)
		})
	}
}

func TestEmbed_PacesBetweenChunksOnly(t *testing.T) {
	b, slept := newTestBatcher(&fakeProvider{}, 4)

	_, err := b.Embed(context.Background(), prompts(10))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, *slept)
}

func TestEmbed_Empty(t *testing.T) {
	p := &fakeProvider{}
	b, slept := newTestBatcher(p, 4)

	got, err := b.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, p.calls)
	assert.Empty(t, *slept)
}

func TestEmbed_FailedChunkAbortsWholeCall(t *testing.T) {
	p := &fakeProvider{failAt: 2}
	b, _ := newTestBatcher(p, 3)

	got, err := b.Embed(context.Background(), prompts(9))
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Len(t, p.calls, 2)
}

func TestEmbed_CountMismatch(t *testing.T) {
	b, _ := newTestBatcher(&fakeProvider{drop: true}, 5)

	_, err := b.Embed(context.Background(), prompts(5))
	assert.ErrorIs(t, err, ErrCountMismatch)
}

func TestEmbedEach_ReportsOffsets(t *testing.T) {
	b, _ := newTestBatcher(&fakeProvider{}, 4)

	var offsets []int
	err := b.EmbedEach(context.Background(), prompts(10), func(offset int, vectors [][]float64) error {
		offsets = append(offsets, offset)
		assert.Equal(t, float64(offset), vectors[0][0])
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4, 8}, offsets)
}

func TestEmbedEach_CallbackErrorStops(t *testing.T) {
	p := &fakeProvider{}
	b, _ := newTestBatcher(p, 2)
	stop := errors.New("stop")

	err := b.EmbedEach(context.Background(), prompts(6), func(int, [][]float64) error {
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Len(t, p.calls, 1)
}

func TestEmbed_CancelledDuringPace(t *testing.T) {
	b := NewBatcher(&fakeProvider{}, BatcherConfig{ChunkSize: 1, Pace: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Embed(ctx, prompts(2))
	assert.ErrorIs(t, err, context.Canceled)
}
