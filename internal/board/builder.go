// Package board assembles corridor sailing boards: both directions of a
// corridor merged into one time-ordered list, each sailing scored against
// the conditions at its departure terminal.
package board

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"ferrycast/internal/exposure"
	"ferrycast/internal/scoring"
	"ferrycast/internal/types"
)

// CorridorStore resolves corridor and terminal reference data.
type CorridorStore interface {
	GetCorridor(ctx context.Context, corridorID string) (*types.Corridor, error)
	GetTerminal(ctx context.Context, terminalID string) (*types.Terminal, error)
}

// SailingLister returns the operator-published schedule for a corridor
// service date.
type SailingLister interface {
	ListSailings(ctx context.Context, corridorID, serviceDate string) ([]types.Sailing, error)
}

// WeatherResolver walks the weather authority ladder for a terminal.
type WeatherResolver interface {
	Resolve(ctx context.Context, terminalID string, now time.Time) types.WeatherSourceResult
}

// TideSource yields the tidal state near a terminal.
type TideSource interface {
	CurrentSwing(ctx context.Context, terminal types.Terminal) (*types.TideSwing, error)
}

// ForecastStore looks up ingested model forecasts by target hour.
type ForecastStore interface {
	LatestForHour(ctx context.Context, terminalID string, model types.ForecastModel, at time.Time) (*types.ForecastRecord, error)
}

// HistoryStore aggregates comparable past outcomes for a route.
type HistoryStore interface {
	HistoricalStats(ctx context.Context, routeID string, windSpeedMph float64) (*scoring.HistoricalMatch, error)
}

// PredictionWriter persists immutable prediction rows.
type PredictionWriter interface {
	Insert(ctx context.Context, p *types.PredictionRecord) error
}

// Options tunes one board build.
type Options struct {
	// UseForecast substitutes the ingested model forecast for the sailing's
	// departure hour in place of current conditions, when one exists.
	UseForecast bool
	// ForecastModel selects the model for forecast substitution. Empty
	// defaults to GFS.
	ForecastModel types.ForecastModel
}

// Builder assembles corridor boards.
type Builder struct {
	corridors   CorridorStore
	sailings    SailingLister
	weather     WeatherResolver
	tides       TideSource
	forecasts   ForecastStore
	history     HistoryStore
	predictions PredictionWriter
	guard       *Guard
	engine      *scoring.Engine
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewBuilder wires a Builder. tides, forecasts, history, and predictions may
// each be nil; the corresponding enrichment is skipped.
func NewBuilder(
	corridors CorridorStore,
	sailings SailingLister,
	weather WeatherResolver,
	tides TideSource,
	forecasts ForecastStore,
	history HistoryStore,
	predictions PredictionWriter,
	guard *Guard,
	engine *scoring.Engine,
	clock clockwork.Clock,
	logger *slog.Logger,
) *Builder {
	return &Builder{
		corridors:   corridors,
		sailings:    sailings,
		weather:     weather,
		tides:       tides,
		forecasts:   forecasts,
		history:     history,
		predictions: predictions,
		guard:       guard,
		engine:      engine,
		clock:       clock,
		logger:      logger,
	}
}

// BuildResult is one assembled board plus the weather that informed it and
// the guard's audit. Guard is nil when the audit could not run.
type BuildResult struct {
	Board   types.CorridorBoard
	Weather map[string]types.WeatherSourceResult
	Guard   *types.CancellationGuardResult
}

// Build assembles the board for one corridor service date. An unknown
// corridor fails; a known corridor with zero sailings yields a valid empty
// board. Weather and tide failures degrade scoring, they never fail the
// request.
func (b *Builder) Build(ctx context.Context, corridorID, serviceDate string, opts Options) (*BuildResult, error) {
	corridor, err := b.corridors.GetCorridor(ctx, corridorID)
	if err != nil {
		return nil, err
	}

	sailings, err := b.sailings.ListSailings(ctx, corridorID, serviceDate)
	if err != nil {
		return nil, err
	}

	now := b.clock.Now().UTC()
	model := opts.ForecastModel
	if model == "" {
		model = types.ModelGFS
	}

	// Each direction departs from its own terminal; resolve conditions once
	// per terminal, not per sailing.
	conditions := map[string]types.WeatherSourceResult{
		corridor.OriginTerminalID: b.weather.Resolve(ctx, corridor.OriginTerminalID, now),
	}
	if corridor.DestTerminalID != corridor.OriginTerminalID {
		conditions[corridor.DestTerminalID] = b.weather.Resolve(ctx, corridor.DestTerminalID, now)
	}

	tide := b.currentTide(ctx, corridor.OriginTerminalID)

	historyByRoute := make(map[string]*scoring.HistoricalMatch)

	entries := make([]types.BoardEntry, 0, len(sailings))
	for _, sailing := range sailings {
		terminalID := corridor.OriginTerminalID
		if sailing.Direction == types.DirectionReturn {
			terminalID = corridor.DestTerminalID
		}
		resolved := conditions[terminalID]

		snapshot := resolved.Snapshot
		authority := resolved.Authority
		if opts.UseForecast {
			if forecast := b.forecastFor(ctx, terminalID, model, sailing.DepartureTimeLocal); forecast != nil {
				snapshot = forecast
				authority = ""
			}
		}

		profile, _ := exposure.Lookup(sailing.RouteID)
		historical := b.historyFor(ctx, historyByRoute, sailing.RouteID, snapshot)

		risk := b.engine.Score(scoring.Input{
			Weather:    snapshot,
			Authority:  authority,
			Tide:       tide,
			Profile:    profile,
			Historical: historical,
		})

		entries = append(entries, types.BoardEntry{Sailing: sailing, Risk: risk})
		b.recordPrediction(ctx, corridor, sailing, risk, snapshot, now)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		si, sj := entries[i].Sailing, entries[j].Sailing
		if !si.DepartureTimeLocal.Equal(sj.DepartureTimeLocal) {
			return si.DepartureTimeLocal.Before(sj.DepartureTimeLocal)
		}
		if si.Direction != sj.Direction {
			return si.Direction == types.DirectionOutbound
		}
		return si.ID < sj.ID
	})

	result := &BuildResult{
		Board: types.CorridorBoard{
			CorridorID:       corridorID,
			ServiceDateLocal: serviceDate,
			Sailings:         entries,
		},
		Weather: conditions,
	}
	if b.guard != nil {
		result.Guard = b.guard.Audit(ctx, &result.Board)
	}
	return result, nil
}

func (b *Builder) currentTide(ctx context.Context, terminalID string) *types.TideSwing {
	if b.tides == nil {
		return nil
	}
	terminal, err := b.corridors.GetTerminal(ctx, terminalID)
	if err != nil {
		b.logger.WarnContext(ctx, "terminal lookup failed for tide enrichment",
			slog.String("terminal_id", terminalID),
			slog.Any("error", err))
		return nil
	}
	swing, err := b.tides.CurrentSwing(ctx, *terminal)
	if err != nil {
		b.logger.WarnContext(ctx, "tide fetch failed, scoring without tide",
			slog.String("terminal_id", terminalID),
			slog.Any("error", err))
		return nil
	}
	return swing
}

func (b *Builder) forecastFor(ctx context.Context, terminalID string, model types.ForecastModel, departure time.Time) *types.WeatherSnapshot {
	if b.forecasts == nil {
		return nil
	}
	rec, err := b.forecasts.LatestForHour(ctx, terminalID, model, departure)
	if err != nil {
		b.logger.WarnContext(ctx, "forecast lookup failed, falling back to current conditions",
			slog.String("terminal_id", terminalID),
			slog.String("model", string(model)),
			slog.Any("error", err))
		return nil
	}
	if rec == nil {
		return nil
	}
	snap := rec.Snapshot
	return &snap
}

func (b *Builder) historyFor(ctx context.Context, cache map[string]*scoring.HistoricalMatch, routeID string, snapshot *types.WeatherSnapshot) *scoring.HistoricalMatch {
	if b.history == nil || snapshot == nil {
		return nil
	}
	if match, ok := cache[routeID]; ok {
		return match
	}
	match, err := b.history.HistoricalStats(ctx, routeID, snapshot.WindSpeedMph)
	if err != nil {
		b.logger.WarnContext(ctx, "historical stats lookup failed, scoring without history",
			slog.String("route_id", routeID),
			slog.Any("error", err))
		match = nil
	}
	cache[routeID] = match
	return match
}

// recordPrediction writes the scored entry as an immutable prediction row.
// Failures are logged and swallowed; a board response never depends on the
// prediction log being writable.
func (b *Builder) recordPrediction(ctx context.Context, corridor *types.Corridor, sailing types.Sailing, risk types.RiskAssessment, snapshot *types.WeatherSnapshot, now time.Time) {
	if b.predictions == nil {
		return
	}
	departure := sailing.DepartureTimeLocal
	err := b.predictions.Insert(ctx, &types.PredictionRecord{
		ID:                 uuid.NewString(),
		RouteID:            sailing.RouteID,
		CorridorID:         corridor.ID,
		SailingID:          sailing.ID,
		SailingDepartureAt: &departure,
		PredictedAt:        now,
		Score:              risk.Score,
		Confidence:         risk.Confidence,
		ModelVersion:       b.engine.ModelVersion(),
		WeatherSnapshot:    snapshot,
	})
	if err != nil {
		b.logger.WarnContext(ctx, "prediction write failed",
			slog.String("sailing_id", sailing.ID),
			slog.Any("error", err))
	}
}
