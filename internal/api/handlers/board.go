// Package handlers contains the HTTP handler implementations for the
// ferrycast API: corridor boards, outcome reporting, accuracy metrics, and
// operational job triggers.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"ferrycast/internal/board"
	"ferrycast/internal/core"
	"ferrycast/internal/types"
)

// serviceDateLayout is the wire format for service dates.
const serviceDateLayout = "2006-01-02"

// BoardServiceInterface defines the service contract for the board handler.
// Defined locally to avoid tight coupling per the handler injection pattern.
type BoardServiceInterface interface {
	Build(ctx context.Context, corridorID, serviceDate string, opts board.Options) (*board.BuildResult, error)
}

// BoardHandler maps HTTP requests to the board builder.
type BoardHandler struct {
	service BoardServiceInterface
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewBoardHandler creates a BoardHandler with the provided dependencies.
func NewBoardHandler(svc BoardServiceInterface, clock clockwork.Clock, logger *slog.Logger) *BoardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BoardHandler{service: svc, clock: clock, logger: logger}
}

// RegisterRoutes mounts the board endpoints onto the mux.
func (h *BoardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/corridors/{corridorID}/board", h.HandleGetBoard)
}

// boardResponse is the wire shape for a board request: the board itself,
// the per-terminal weather that informed it, and the cancellation guard's
// audit when it ran.
type boardResponse struct {
	Board   types.CorridorBoard                  `json:"board"`
	Weather map[string]types.WeatherSourceResult `json:"weather"`
	Guard   *types.CancellationGuardResult       `json:"guard,omitempty"`
}

// HandleGetBoard handles GET /v1/corridors/{corridorID}/board.
//
// Query parameters:
//   - date: service date as YYYY-MM-DD; defaults to today.
//   - use_forecast: "true" substitutes the departure-hour model forecast
//     for current conditions where one has been ingested.
//   - model: forecast model for substitution, "gfs" (default) or "ecmwf".
func (h *BoardHandler) HandleGetBoard(w http.ResponseWriter, r *http.Request) {
	corridorID := chi.URLParam(r, "corridorID")
	q := r.URL.Query()

	serviceDate := q.Get("date")
	if serviceDate == "" {
		serviceDate = h.clock.Now().UTC().Format(serviceDateLayout)
	} else if _, err := time.Parse(serviceDateLayout, serviceDate); err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidServiceDate,
			"date must be formatted as YYYY-MM-DD",
			nil,
		))
		return
	}

	opts := board.Options{
		UseForecast: q.Get("use_forecast") == "true",
	}
	switch model := q.Get("model"); model {
	case "", string(types.ModelGFS):
		opts.ForecastModel = types.ModelGFS
	case string(types.ModelECMWF):
		opts.ForecastModel = types.ModelECMWF
	default:
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"model must be one of: gfs, ecmwf",
			nil,
		))
		return
	}

	result, err := h.service.Build(r.Context(), corridorID, serviceDate, opts)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	// Boards carry live risk data; edges and proxies must not cache them.
	w.Header().Set("Cache-Control", "no-store")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: boardResponse{
		Board:   result.Board,
		Weather: result.Weather,
		Guard:   result.Guard,
	}})
}
