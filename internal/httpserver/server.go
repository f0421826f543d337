package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/streamdex/streamdex/internal/engine"
	"github.com/streamdex/streamdex/internal/index"
	"github.com/streamdex/streamdex/internal/ledger"
)

// RebuildFunc rebuilds the vector index from the configured document source.
type RebuildFunc func(ctx context.Context) (*index.Index, error)

// Server exposes REST endpoints over a query engine.
type Server struct {
	engine          *engine.Engine
	usage           ledger.Store
	rebuild         RebuildFunc
	streamFinalOnly bool
	logger          *log.Logger
}

// Config captures the dependencies for a Server.
type Config struct {
	Engine  *engine.Engine
	Usage   ledger.Store
	Rebuild RebuildFunc
	// StreamFinalOnly is the streaming scope applied to stream requests
	// that do not set stream_all themselves.
	StreamFinalOnly bool
	Logger          *log.Logger
}

// New constructs a Server. Engine is required; Usage and Rebuild are optional
// and disable their endpoints when nil.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("httpserver: engine is required")
	}
	return &Server{
		engine:          cfg.Engine,
		usage:           cfg.Usage,
		rebuild:         cfg.Rebuild,
		streamFinalOnly: cfg.StreamFinalOnly,
		logger:          cfg.Logger,
	}, nil
}

// Router assembles the chi router with all endpoints mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/query", s.handleQuery)
	r.Post("/v1/query/stream", s.handleQueryStream)
	r.Get("/v1/usage", s.handleUsage)
	r.Post("/v1/reindex", s.handleReindex)
	return r
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logf("listening addr=%s", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		s.respondError(w, http.StatusNotFound, errors.New("usage tracking disabled"))
		return
	}
	summary, err := s.usage.Summary(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	payload := map[string]any{"summary": summary}
	if raw := r.URL.Query().Get("recent"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			s.respondError(w, http.StatusBadRequest, errors.New("recent must be a positive integer"))
			return
		}
		entries, err := s.usage.ListRecent(r.Context(), limit)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err)
			return
		}
		payload["recent"] = entries
	}
	s.respondJSON(w, http.StatusOK, payload)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.rebuild == nil {
		s.respondError(w, http.StatusNotFound, errors.New("reindex disabled"))
		return
	}
	start := time.Now()
	idx, err := s.rebuild(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.engine.SetIndex(idx)
	s.logf("reindex chunks=%d total_ms=%d", idx.Len(), time.Since(start).Milliseconds())
	s.respondJSON(w, http.StatusOK, map[string]any{"chunks": idx.Len()})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	s.respondJSON(w, status, map[string]any{"error": err.Error()})
}

func (s *Server) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
