package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ferrycast/internal/backtest"
	"ferrycast/internal/core"
	"ferrycast/internal/types"
)

// OutcomeServiceInterface defines the service contract for the outcome
// handler.
type OutcomeServiceInterface interface {
	LogOutcome(ctx context.Context, in backtest.OutcomeInput) (*types.OutcomeLog, error)
	RecentOutcomes(ctx context.Context, limit int) ([]types.OutcomeLog, error)
}

// OutcomeHandler maps HTTP requests to the outcome log.
type OutcomeHandler struct {
	service OutcomeServiceInterface
	logger  *slog.Logger
}

// NewOutcomeHandler creates an OutcomeHandler with the provided dependencies.
func NewOutcomeHandler(svc OutcomeServiceInterface, logger *slog.Logger) *OutcomeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutcomeHandler{service: svc, logger: logger}
}

// RegisterRoutes mounts the outcome endpoints onto the mux.
func (h *OutcomeHandler) RegisterRoutes(r chi.Router) {
	r.Post("/outcomes", h.HandleLogOutcome)
	r.Get("/outcomes", h.HandleListOutcomes)
}

// HandleLogOutcome handles POST /v1/outcomes. The body is a single
// ground-truth report; validation failures return field-specific codes.
func (h *OutcomeHandler) HandleLogOutcome(w http.ResponseWriter, r *http.Request) {
	var in backtest.OutcomeInput
	if err := core.DecodeJSON(w, r, &in); err != nil {
		core.Error(w, r, err)
		return
	}

	row, err := h.service.LogOutcome(r.Context(), in)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: row})
}

// HandleListOutcomes handles GET /v1/outcomes, returning recent rows newest
// first. The optional limit parameter caps the page size.
func (h *OutcomeHandler) HandleListOutcomes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationInvalidLimit,
				"limit must be a positive integer",
				nil,
			))
			return
		}
		limit = parsed
	}

	outcomes, err := h.service.RecentOutcomes(r.Context(), limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if outcomes == nil {
		outcomes = []types.OutcomeLog{}
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: outcomes})
}
