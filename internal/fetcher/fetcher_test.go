package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cluePage = `<html><body>
<h3>Answer CAT</h3>
<ul><li>Not a clue</li></ul>
<h3>Referring crossword puzzle clues</h3>
<div>
  <ul>
    <li><a href="#">Feline</a></li>
    <li>Pet with   whiskers</li>
    <li>Tom, e.g.</li>
    <li>Lion's kin</li>
    <li>Mouser</li>
    <li>Kitty</li>
    <li>Seventh clue</li>
  </ul>
</div>
</body></html>`

func newTestFetcher(t *testing.T, h http.HandlerFunc) (*Fetcher, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	f := New(Config{URLTemplate: srv.URL + "/answer/{word}/"}, nil)
	var slept []time.Duration
	f.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return f, &slept
}

func TestFetchClues(t *testing.T) {
	f, slept := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/answer/cat/", r.URL.Path)
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		fmt.Fprint(w, cluePage)
	})
	f.cfg.Delay = DefaultDelay

	clues, err := f.FetchClues(context.Background(), "CAT")
	require.NoError(t, err)
	assert.Equal(t, []string{"Feline", "Pet with whiskers", "Tom, e.g.", "Lion's kin", "Mouser", "Kitty"}, clues)
	assert.Equal(t, []time.Duration{DefaultDelay}, *slept)
}

func TestFetchClues_NotFoundIsNoClues(t *testing.T) {
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	clues, err := f.FetchClues(context.Background(), "XYZZY")
	require.NoError(t, err)
	assert.Nil(t, clues)
}

func TestFetchClues_NoHeading(t *testing.T) {
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>nothing here</p></body></html>")
	})

	clues, err := f.FetchClues(context.Background(), "CAT")
	require.NoError(t, err)
	assert.Empty(t, clues)
}

func TestFetchClues_TransportErrorIsNoClues(t *testing.T) {
	f := New(Config{URLTemplate: "http://127.0.0.1:1/{word}", Timeout: time.Second}, nil)

	clues, err := f.FetchClues(context.Background(), "CAT")
	require.NoError(t, err)
	assert.Nil(t, clues)
}

func TestFetchClues_BadScheme(t *testing.T) {
	f := New(Config{URLTemplate: "ftp://example.com/{word}"}, nil)
	_, err := f.FetchClues(context.Background(), "CAT")
	assert.Error(t, err)
}
