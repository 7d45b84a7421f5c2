// Package server exposes the gateway over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/swapi-gateway/pkg/logging"
	"github.com/Sternrassler/swapi-gateway/pkg/query"
	"github.com/Sternrassler/swapi-gateway/pkg/resolver"
	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

// Version is reported by /health.
const Version = "1.0.0"

// Gateway fetches single records.
type Gateway interface {
	Fetch(ctx context.Context, t swapi.EntityType, id int) (swapi.Record, error)
}

// Deps are the components the handlers serve from.
type Deps struct {
	Gateway  Gateway
	Resolver *resolver.Resolver
	Engine   *query.Engine

	// APIKey guards every catalog route. /health and /metrics stay open.
	APIKey string
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	deps   Deps
	addr   string
	logger zerolog.Logger
}

// New creates a new HTTP server instance
func New(addr string, deps Deps) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(AccessLog)
	r.Use(Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "NotFound", "The requested resource was not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, "MethodNotAllowed", "The requested method is not allowed for this resource")
	})

	s := &Server{
		router: r,
		deps:   deps,
		addr:   addr,
		logger: logging.NewLogger("server"),
	}
	s.registerRoutes()

	// Collection queries may drain several upstream pages, hence the long
	// write timeout.
	s.server = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Start listens on the configured address and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.addr).Msg("Starting HTTP server")

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}
