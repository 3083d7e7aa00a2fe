// Package api serves the memory tools and the capture journal over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/adapter"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/store"
)

// Tools is the adapter surface behind the tool endpoints.
type Tools interface {
	Query(ctx context.Context, text string, topK int, opts adapter.QueryOptions) (*adapter.QueryResult, error)
	Get(ctx context.Context, docID string) (*adapter.Document, error)
	ListInbox(ctx context.Context, filter adapter.InboxFilter) (json.RawMessage, error)
	InboxAction(ctx context.Context, req adapter.InboxActionRequest) (json.RawMessage, error)
	RetrievalFeedback(ctx context.Context, req adapter.FeedbackRequest) (json.RawMessage, error)
}

// CaptureLister reads the capture journal.
type CaptureLister interface {
	ListCaptures(ctx context.Context, conversationID string, limit int) ([]store.CaptureRecord, error)
}

// StatusFunc reports runtime state for the status endpoint.
type StatusFunc func() map[string]any

type Server struct {
	router  *chi.Mux
	port    int
	tools   Tools
	journal CaptureLister
	status  StatusFunc
}

// NewServer wires the routes. journal and status may be nil.
func NewServer(port int, apiToken string, tools Tools, journal CaptureLister, status StatusFunc) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:  router,
		port:    port,
		tools:   tools,
		journal: journal,
		status:  status,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1/memory", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/status", s.statusHandler)
		r.Post("/search", s.search)
		r.Post("/get", s.get)
		r.Get("/inbox", s.listInbox)
		r.Post("/inbox/action", s.inboxAction)
		r.Post("/feedback", s.feedback)
		r.Get("/captures", s.listCaptures)
	})

	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"agent":   "lightrag-memory",
		"journal": s.journal != nil,
	}
	if s.status != nil {
		for k, v := range s.status() {
			body[k] = v
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
