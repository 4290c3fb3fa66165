package core

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MountRoutes registers the global middleware chain, the /v1 API group, and
// the top-level operational endpoints.
//
// Middleware ordering:
//  1. Recoverer       - outermost so every panic is caught
//  2. ContextTimeout  - soft deadline before upstream calls begin
//  3. RequestID       - correlation ID for logs and responses
//  4. SecurityHeaders - present on every response, including errors
//  5. RequestLogger   - structured logging with redacted headers
//  6. Metrics         - latency histogram by route pattern
//  7. Compression     - gzip for board payloads
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.Config.Server.RequestTimeout))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))
	s.router.Use(MetricsMiddleware)
	s.router.Use(func(next http.Handler) http.Handler {
		return gzhttp.GzipHandler(next)
	})

	s.router.Route("/v1", func(r chi.Router) {
		for _, registrar := range s.V1RouteRegistrars {
			registrar(r)
		}
	})

	s.router.Get("/health", s.HandleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// routePattern returns the chi route pattern for the request, falling back
// to the raw path when the router has no match.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
