// Package core provides the API chassis for the ferrycast service: a chi
// router with the cross-cutting middleware chain (recovery, timeouts,
// request IDs, structured logging, metrics, compression) applied before
// requests reach domain handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ferrycast/internal/config"
)

// RouteRegistrar mounts a domain handler's routes onto the v1 router. The
// indirection keeps core free of handler imports.
type RouteRegistrar func(r chi.Router)

// Server encapsulates the API dependencies, allowing injection during
// testing and distinct configuration for different environments.
type Server struct {
	Config *config.Config
	Logger *slog.Logger

	// V1RouteRegistrars are invoked under /v1 when routes are mounted.
	V1RouteRegistrars []RouteRegistrar

	// HealthProbes are checked by GET /health.
	HealthProbes []HealthProbe

	router *chi.Mux
}

// NewServer initializes the server shell. The caller mounts routes after
// construction; the separation lets tests register only what they exercise.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown flushes server resources during graceful termination. Database
// pool teardown lives with the pool's owner in main.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
