// Package backtest links recorded predictions to observed outcomes and
// derives accuracy metrics from the linked set. Linking is idempotent:
// running it twice over the same data links nothing new.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"ferrycast/internal/core"
	"ferrycast/internal/types"
)

// PredictionStore reads recorded predictions.
type PredictionStore interface {
	ListUnlinked(ctx context.Context, limit int) ([]types.PredictionRecord, error)
	FindNearest(ctx context.Context, routeID string, around time.Time, tolerance time.Duration) (*types.PredictionRecord, error)
}

// OutcomeStore reads and appends ground-truth outcome rows.
type OutcomeStore interface {
	Insert(ctx context.Context, o *types.OutcomeLog) error
	FindMatch(ctx context.Context, routeID string, departure time.Time, tolerance time.Duration) (*types.OutcomeLog, error)
	Recent(ctx context.Context, limit int) ([]types.OutcomeLog, error)
}

// LinkStore records prediction/outcome pairings and derives metrics.
type LinkStore interface {
	Link(ctx context.Context, predictionID, outcomeID string, linkedAt time.Time) (bool, error)
	ComputeMetrics(ctx context.Context, modelVersion, corridorID string) ([]types.AccuracyMetrics, error)
}

// Config bounds a backtest run.
type Config struct {
	DefaultLimit       int
	MaxLimit           int
	LinkTolerance      time.Duration
	EnrichmentDeadline time.Duration
}

// RunResult summarizes one backtest run.
type RunResult struct {
	Examined   int   `json:"examined"`
	Linked     int   `json:"linked"`
	Skipped    int   `json:"skipped"`
	Errors     int   `json:"errors"`
	DurationMS int64 `json:"duration_ms"`
}

// Service is the backtesting engine.
type Service struct {
	predictions PredictionStore
	outcomes    OutcomeStore
	links       LinkStore
	cfg         Config
	clock       clockwork.Clock
	validator   *core.Validator
	logger      *slog.Logger
}

// NewService wires a Service.
func NewService(predictions PredictionStore, outcomes OutcomeStore, links LinkStore, cfg Config, clock clockwork.Clock, logger *slog.Logger) *Service {
	return &Service{
		predictions: predictions,
		outcomes:    outcomes,
		links:       links,
		cfg:         cfg,
		clock:       clock,
		validator:   core.NewValidator(logger),
		logger:      logger,
	}
}

// Run examines up to limit unlinked predictions and links each one to the
// outcome observed closest to its sailing departure, within the configured
// tolerance. Zero means the default batch size. Predictions with no
// qualifying outcome are skipped and stay eligible for future runs; per-row
// failures are counted and do not abort the batch.
func (s *Service) Run(ctx context.Context, limit int) (*RunResult, error) {
	switch {
	case limit == 0:
		limit = s.cfg.DefaultLimit
	case limit < 0 || limit > s.cfg.MaxLimit:
		return nil, types.NewAppError(types.ErrCodeValidationInvalidLimit,
			fmt.Sprintf("limit must be between 1 and %d", s.cfg.MaxLimit), nil)
	}

	started := s.clock.Now()
	predictions, err := s.predictions.ListUnlinked(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Examined: len(predictions)}
	now := s.clock.Now().UTC()

	for _, p := range predictions {
		if p.SailingDepartureAt == nil {
			result.Skipped++
			continue
		}

		outcome, err := s.outcomes.FindMatch(ctx, p.RouteID, *p.SailingDepartureAt, s.cfg.LinkTolerance)
		if err != nil {
			result.Errors++
			s.logger.WarnContext(ctx, "outcome match failed",
				slog.String("prediction_id", p.ID),
				slog.Any("error", err))
			continue
		}
		if outcome == nil {
			result.Skipped++
			continue
		}

		inserted, err := s.links.Link(ctx, p.ID, outcome.ID, now)
		if err != nil {
			result.Errors++
			s.logger.WarnContext(ctx, "link insert failed",
				slog.String("prediction_id", p.ID),
				slog.Any("error", err))
			continue
		}
		if inserted {
			result.Linked++
		} else {
			result.Skipped++
		}
	}

	result.DurationMS = s.clock.Since(started).Milliseconds()
	s.logger.InfoContext(ctx, "backtest run complete",
		slog.Int("examined", result.Examined),
		slog.Int("linked", result.Linked),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", result.Errors),
		slog.Int64("duration_ms", result.DurationMS))
	return result, nil
}

// Metrics recomputes accuracy metrics from the linked set, optionally
// narrowed to one model version or corridor; empty filter values match
// everything. Nothing is cached or persisted; the linked rows are the only
// source of truth.
func (s *Service) Metrics(ctx context.Context, modelVersion, corridorID string) ([]types.AccuracyMetrics, error) {
	return s.links.ComputeMetrics(ctx, modelVersion, corridorID)
}

// RecentOutcomes returns up to limit outcome rows, newest first.
func (s *Service) RecentOutcomes(ctx context.Context, limit int) ([]types.OutcomeLog, error) {
	if limit <= 0 || limit > s.cfg.MaxLimit {
		limit = s.cfg.DefaultLimit
	}
	return s.outcomes.Recent(ctx, limit)
}

// OutcomeInput is one incoming ground-truth report.
type OutcomeInput struct {
	RouteID                string                `json:"route_id" validate:"required"`
	ObservedTime           time.Time             `json:"observed_time" validate:"required"`
	ObservedOutcome        types.ObservedOutcome `json:"observed_outcome" validate:"outcome"`
	OperatorReportedStatus string                `json:"operator_reported_status" validate:"omitempty,max=200"`
}

// ValidationCode maps failed OutcomeInput fields onto the outcome API's
// error codes.
func (in OutcomeInput) ValidationCode(field string) (types.ErrorCode, string) {
	switch field {
	case "RouteID":
		return types.ErrCodeValidationMissingRouteID, "route_id is required"
	case "ObservedTime":
		return types.ErrCodeValidationInvalidObservedAt, "observed_time is required"
	case "ObservedOutcome":
		return types.ErrCodeValidationInvalidOutcome,
			fmt.Sprintf("observed_outcome %q is not recognized", in.ObservedOutcome)
	}
	return "", ""
}

// LogOutcome validates and appends one outcome row. When a prediction for
// the route exists near the observed time, its score and model version are
// stamped onto the row; the enrichment lookup runs under its own short
// deadline and failing it never fails the report.
func (s *Service) LogOutcome(ctx context.Context, in OutcomeInput) (*types.OutcomeLog, error) {
	if err := s.validator.ValidateStruct(in); err != nil {
		return nil, err
	}

	row := &types.OutcomeLog{
		ID:                     uuid.NewString(),
		RouteID:                in.RouteID,
		ObservedTime:           in.ObservedTime.UTC(),
		ObservedOutcome:        in.ObservedOutcome,
		OperatorReportedStatus: in.OperatorReportedStatus,
		CreatedAt:              s.clock.Now().UTC(),
	}
	s.enrich(ctx, row)

	if err := s.outcomes.Insert(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *Service) enrich(ctx context.Context, row *types.OutcomeLog) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.EnrichmentDeadline)
	defer cancel()

	p, err := s.predictions.FindNearest(ctx, row.RouteID, row.ObservedTime, s.cfg.LinkTolerance)
	if err != nil {
		s.logger.WarnContext(ctx, "outcome enrichment lookup failed",
			slog.String("route_id", row.RouteID),
			slog.Any("error", err))
		return
	}
	if p == nil {
		return
	}
	score := p.Score
	row.PredictionScore = &score
	row.ModelVersion = p.ModelVersion
}
