// Package devserver is a local stand-in for the hosted agent platform. It
// serves the event history API the console client consumes, backed by a
// pluggable EventStore, with an optional seeder and run simulator to keep
// the feed alive during development.
package devserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sablewing/agent-console/internal/storage"
)

type Server struct {
	Router *chi.Mux
	Addr   string

	logger *slog.Logger
	srv    *http.Server
}

// New builds the dev server router around store and hub. An empty apiKey
// leaves the server unauthenticated.
func New(addr string, store storage.EventStore, hub *Hub, apiKey string, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))

	if apiKey != "" {
		r.Use(APIKeyMiddleware(apiKey))
	}

	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "agent-console-dev")
	})

	h := NewHandlers(store, hub, logger)

	// The stream holds its connection open, so the request timeout covers
	// only the paginated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(TimeoutMiddleware(30 * time.Second))
		r.Get("/agents/{agentID}/events/", h.ListEvents)
		r.Get("/agents/{agentID}/events/timeline/", h.LoadTimeline)
		r.Post("/agents/{agentID}/events/", h.PushEvent)
	})
	r.Get("/agents/{agentID}/events/stream", h.StreamEvents)

	return &Server{
		Router: r,
		Addr:   addr,
		logger: logger,
		srv:    &http.Server{Addr: addr, Handler: r},
	}
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting dev server", slog.String("addr", s.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
