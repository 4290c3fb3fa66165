package core

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// healthCheckTimeout is the maximum time allowed for all health probes to
// complete. Any probe exceeding it marks the service unhealthy.
const healthCheckTimeout = 2 * time.Second

// HealthProbe is a subsystem health check. Each probe represents a critical
// dependency (database, weather providers) that must be operational.
type HealthProbe interface {
	// Name returns a human-readable identifier for the probe.
	Name() string

	// Check performs the health check against the subsystem. It should
	// respect the context deadline.
	Check(ctx context.Context) error
}

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth executes all registered probes concurrently under a short
// deadline. Returns 200 when every probe is healthy, 503 otherwise. The
// endpoint is public and mounted at GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	probes := s.HealthProbes
	if len(probes) == 0 {
		JSON(w, r, http.StatusOK, healthResponse{Status: "healthy"})
		return
	}

	type probeResult struct {
		name string
		err  error
	}

	var (
		mu      sync.Mutex
		results = make([]probeResult, 0, len(probes))
		wg      sync.WaitGroup
	)

	for _, probe := range probes {
		wg.Add(1)
		go func(p HealthProbe) {
			defer wg.Done()

			var err error
			func() {
				defer func() {
					if rvr := recover(); rvr != nil {
						err = fmt.Errorf("probe panicked: %v", rvr)
					}
				}()
				err = p.Check(ctx)
			}()

			mu.Lock()
			results = append(results, probeResult{name: p.Name(), err: err})
			mu.Unlock()
		}(probe)
	}
	wg.Wait()

	resp := healthResponse{
		Status:     "healthy",
		Components: make(map[string]componentStatus, len(results)),
	}
	status := http.StatusOK
	for _, res := range results {
		if res.err != nil {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			resp.Components[res.name] = componentStatus{
				Status:  "unhealthy",
				Message: res.err.Error(),
			}
			continue
		}
		resp.Components[res.name] = componentStatus{Status: "healthy"}
	}

	JSON(w, r, status, resp)
}

// PingProbe adapts a ping function into a HealthProbe. Used for the pgx pool
// and any dependency exposing a context-aware ping.
type PingProbe struct {
	ProbeName string
	Ping      func(ctx context.Context) error
}

func (p PingProbe) Name() string { return p.ProbeName }

func (p PingProbe) Check(ctx context.Context) error { return p.Ping(ctx) }
