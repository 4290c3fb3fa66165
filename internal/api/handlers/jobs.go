package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ferrycast/internal/backtest"
	"ferrycast/internal/core"
	"ferrycast/internal/scheduler"
)

// IngestServiceInterface defines the service contract for the ingestion
// trigger.
type IngestServiceInterface interface {
	Run(ctx context.Context) ([]scheduler.IngestResult, error)
}

// BacktestServiceInterface defines the service contract for the backtest
// trigger.
type BacktestServiceInterface interface {
	Run(ctx context.Context, limit int) (*backtest.RunResult, error)
}

// JobsHandler exposes the operational job triggers. Routes registered here
// assume the job-token middleware is already applied.
type JobsHandler struct {
	ingest   IngestServiceInterface
	backtest BacktestServiceInterface
	logger   *slog.Logger
}

// NewJobsHandler creates a JobsHandler with the provided dependencies.
func NewJobsHandler(ingest IngestServiceInterface, backtest BacktestServiceInterface, logger *slog.Logger) *JobsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobsHandler{ingest: ingest, backtest: backtest, logger: logger}
}

// RegisterRoutes mounts the job endpoints onto the mux.
func (h *JobsHandler) RegisterRoutes(r chi.Router) {
	r.Post("/ingest", h.HandleTriggerIngest)
	r.Post("/backtest", h.HandleTriggerBacktest)
}

// HandleTriggerIngest handles POST /v1/jobs/ingest, running one forecast
// ingestion pass synchronously and reporting per-model counts.
func (h *JobsHandler) HandleTriggerIngest(w http.ResponseWriter, r *http.Request) {
	results, err := h.ingest.Run(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: results})
}

// backtestRequest is the optional body for a backtest trigger.
type backtestRequest struct {
	Limit int `json:"limit"`
}

// HandleTriggerBacktest handles POST /v1/jobs/backtest. An absent or empty
// body runs with the default batch size.
func (h *JobsHandler) HandleTriggerBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if r.ContentLength > 0 {
		if err := core.DecodeJSON(w, r, &req); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	result, err := h.backtest.Run(r.Context(), req.Limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: result})
}
