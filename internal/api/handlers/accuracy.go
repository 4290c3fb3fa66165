package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ferrycast/internal/core"
	"ferrycast/internal/types"
)

// recentOutcomesSample bounds the outcome sample attached to the accuracy
// response.
const recentOutcomesSample = 10

// AccuracyServiceInterface defines the service contract for the accuracy
// handler.
type AccuracyServiceInterface interface {
	Metrics(ctx context.Context, modelVersion, corridorID string) ([]types.AccuracyMetrics, error)
	RecentOutcomes(ctx context.Context, limit int) ([]types.OutcomeLog, error)
}

// AccuracyHandler exposes the derived accuracy metrics.
type AccuracyHandler struct {
	service AccuracyServiceInterface
	logger  *slog.Logger
}

// NewAccuracyHandler creates an AccuracyHandler with the provided
// dependencies.
func NewAccuracyHandler(svc AccuracyServiceInterface, logger *slog.Logger) *AccuracyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccuracyHandler{service: svc, logger: logger}
}

// RegisterRoutes mounts the accuracy endpoint onto the mux.
func (h *AccuracyHandler) RegisterRoutes(r chi.Router) {
	r.Get("/accuracy", h.HandleGetAccuracy)
}

// accuracyResponse is the wire shape for an accuracy request: the metric
// groups plus a sample of the newest observed outcomes for context.
type accuracyResponse struct {
	Metrics        []types.AccuracyMetrics `json:"metrics"`
	RecentOutcomes []types.OutcomeLog      `json:"recent_outcomes"`
}

// HandleGetAccuracy handles GET /v1/accuracy. Metrics are recomputed from
// the linked prediction/outcome set on every call and can be narrowed with
// the model_version and corridor_id query parameters; an empty linked set
// yields empty lists, not an error.
func (h *AccuracyHandler) HandleGetAccuracy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	metrics, err := h.service.Metrics(r.Context(), q.Get("model_version"), q.Get("corridor_id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	outcomes, err := h.service.RecentOutcomes(r.Context(), recentOutcomesSample)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if metrics == nil {
		metrics = []types.AccuracyMetrics{}
	}
	if outcomes == nil {
		outcomes = []types.OutcomeLog{}
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: accuracyResponse{
		Metrics:        metrics,
		RecentOutcomes: outcomes,
	}})
}
