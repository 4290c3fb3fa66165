package weather

import (
	"context"
	"log/slog"
	"time"

	"ferrycast/internal/types"
)

// AuthorityResolver walks the weather authority ladder for a terminal:
// a fresh operator-reported reading wins, a local ZIP observation backs it
// up, and the unavailable variant closes the ladder. Resolve never returns
// an error; adapter failures are logged and demote to the next rung.
type AuthorityResolver struct {
	operator  OperatorConditionsStore
	local     LocalObservationSource
	terminals TerminalStore
	staleness time.Duration
	logger    *slog.Logger
}

// NewAuthorityResolver builds a resolver. staleness is the window inside
// which an operator reading is considered current.
func NewAuthorityResolver(operator OperatorConditionsStore, local LocalObservationSource, terminals TerminalStore, staleness time.Duration, logger *slog.Logger) *AuthorityResolver {
	return &AuthorityResolver{
		operator:  operator,
		local:     local,
		terminals: terminals,
		staleness: staleness,
		logger:    logger,
	}
}

// Resolve returns the authoritative conditions for the terminal at now.
func (r *AuthorityResolver) Resolve(ctx context.Context, terminalID string, now time.Time) types.WeatherSourceResult {
	if result, ok := r.resolveOperator(ctx, terminalID, now); ok {
		return result
	}
	if result, ok := r.resolveLocal(ctx, terminalID); ok {
		return result
	}

	r.logger.WarnContext(ctx, "weather unavailable for terminal",
		slog.String("terminal_id", terminalID))
	return types.Unavailable()
}

func (r *AuthorityResolver) resolveOperator(ctx context.Context, terminalID string, now time.Time) (types.WeatherSourceResult, bool) {
	reading, err := r.operator.LatestReading(ctx, terminalID)
	if err != nil {
		r.logger.WarnContext(ctx, "operator conditions lookup failed",
			slog.String("terminal_id", terminalID),
			slog.Any("error", err))
		return types.WeatherSourceResult{}, false
	}
	if reading == nil || reading.WindSpeedMph == nil {
		return types.WeatherSourceResult{}, false
	}

	age := now.Sub(reading.ReportedAt)
	if age < 0 || age > r.staleness {
		return types.WeatherSourceResult{}, false
	}

	snap := reading.Snapshot()
	observedAt := reading.ReportedAt
	return types.WeatherSourceResult{
		Authority:  types.AuthorityOperator,
		Snapshot:   &snap,
		AgeMinutes: int(age.Minutes()),
		ObservedAt: &observedAt,
	}, true
}

func (r *AuthorityResolver) resolveLocal(ctx context.Context, terminalID string) (types.WeatherSourceResult, bool) {
	terminal, err := r.terminals.GetTerminal(ctx, terminalID)
	if err != nil {
		r.logger.WarnContext(ctx, "terminal lookup failed during weather resolution",
			slog.String("terminal_id", terminalID),
			slog.Any("error", err))
		return types.WeatherSourceResult{}, false
	}

	obs, err := r.local.FetchCurrent(ctx, *terminal)
	if err != nil {
		r.logger.WarnContext(ctx, "local observation fetch failed",
			slog.String("terminal_id", terminalID),
			slog.String("zip_code", terminal.ZIPCode),
			slog.Any("error", err))
		return types.WeatherSourceResult{}, false
	}

	snap := obs.Snapshot
	observedAt := obs.ObservedAt
	return types.WeatherSourceResult{
		Authority:  types.AuthorityLocalZIP,
		Snapshot:   &snap,
		ZIPCode:    obs.ZIPCode,
		TownName:   obs.TownName,
		ObservedAt: &observedAt,
	}, true
}
