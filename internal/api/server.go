// Package api exposes words, models and rankings over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pbaille/wordlist/internal/domain"
	"github.com/pbaille/wordlist/internal/ranking"
	"github.com/pbaille/wordlist/internal/store"
	"github.com/pbaille/wordlist/internal/wordlist"
)

// Server handles HTTP requests for the wordlist API
type Server struct {
	store   *store.Store
	ranking ranking.Config
	addr    string
	logger  *slog.Logger
}

// New creates a new API server
func New(s *store.Store, rankCfg ranking.Config, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: s, ranking: rankCfg, addr: addr, logger: logger}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Words
	mux.HandleFunc("GET /words", s.listWords)
	mux.HandleFunc("GET /words/{word}", s.getWord)
	mux.HandleFunc("PUT /words/{word}/status", s.setStatus)

	// Sources
	mux.HandleFunc("GET /sources", s.listSources)

	// Models
	mux.HandleFunc("GET /models", s.listModels)
	mux.HandleFunc("GET /models/{id}", s.getModel)
	mux.HandleFunc("GET /models/{id}/ranking", s.getRanking)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withCORS(mux)
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountByStatus()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "words": counts})
}

func (s *Server) listWords(w http.ResponseWriter, r *http.Request) {
	var status domain.Status
	if q := r.URL.Query().Get("status"); q != "" {
		st, err := domain.ParseStatus(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status = st
	}

	words, err := s.store.GetWords(status)
	if err != nil {
		s.fail(w, err)
		return
	}
	if words == nil {
		words = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"words":  words,
		"status": status,
		"count":  len(words),
	})
}

func (s *Server) getWord(w http.ResponseWriter, r *http.Request) {
	word, err := s.store.GetWord(r.PathValue("word"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, word)
}

// SetStatusRequest is the request body for changing a word's status
type SetStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	word := domain.Canonical(r.PathValue("word"))
	changed, err := s.store.SetStatus(word, status)
	if err != nil {
		s.fail(w, err)
		return
	}
	if changed {
		s.logger.Info("status changed", "word", word, "status", status)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"word":    word,
		"status":  status,
		"changed": changed,
	})
}

func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.ListSources()
	if err != nil {
		s.fail(w, err)
		return
	}
	if sources == nil {
		sources = []domain.Source{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.store.ListModels()
	if err != nil {
		s.fail(w, err)
		return
	}
	if models == nil {
		models = []domain.Model{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (s *Server) getModel(w http.ResponseWriter, r *http.Request) {
	id, ok := modelID(w, r)
	if !ok {
		return
	}
	m, err := s.store.GetModel(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// RankingResponse is the JSON form of a model's normalized ranking
type RankingResponse struct {
	ModelID    int64           `json:"model_id"`
	Pivot      string          `json:"pivot"`
	Degenerate bool            `json:"degenerate"`
	Ranking    []ranking.Entry `json:"ranking"`
}

func (s *Server) getRanking(w http.ResponseWriter, r *http.Request) {
	id, ok := modelID(w, r)
	if !ok {
		return
	}
	rows, err := s.store.GetRankingRows(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	res, err := ranking.Normalize(rows, s.ranking)
	if err != nil {
		s.fail(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := wordlist.Write(w, res.Ranking); err != nil {
			s.logger.Warn("write ranking", "err", err)
		}
		return
	}

	entries := res.Ranking
	if entries == nil {
		entries = []ranking.Entry{}
	}
	writeJSON(w, http.StatusOK, RankingResponse{
		ModelID:    id,
		Pivot:      res.Pivot,
		Degenerate: res.Degenerate,
		Ranking:    entries,
	})
}

func modelID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "model id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidStatus), errors.Is(err, domain.ErrInvalidWord):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
