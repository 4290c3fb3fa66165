package board

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ferrycast/internal/types"
)

var guardFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ferrycast_cancellation_guard_failures_total",
	Help: "Board responses that surfaced fewer cancellations than the event stream records.",
}, []string{"corridor_id"})

// CanceledEventCounter counts recorded cancellation events for a corridor
// service date.
type CanceledEventCounter interface {
	CountCanceledEvents(ctx context.Context, corridorID, serviceDate string) (int, error)
}

// Guard audits an assembled board against the cancellation event stream.
// A board is allowed to show more cancellations than the stream records
// (operator status can lead the stream) but never fewer. The audit is
// advisory: it logs and counts, it never blocks or mutates a response.
type Guard struct {
	events CanceledEventCounter
	logger *slog.Logger
}

// NewGuard builds a Guard.
func NewGuard(events CanceledEventCounter, logger *slog.Logger) *Guard {
	return &Guard{events: events, logger: logger}
}

// Audit compares the number of canceled sailings visible in the board with
// the number of distinct canceled sailings in the event stream. A database
// failure skips the audit rather than failing the request; nil is returned
// so callers can omit the guard block from the response.
func (g *Guard) Audit(ctx context.Context, board *types.CorridorBoard) *types.CancellationGuardResult {
	responseCount := 0
	for _, entry := range board.Sailings {
		if entry.Sailing.Status == types.SailingCanceled {
			responseCount++
		}
	}

	dbCount, err := g.events.CountCanceledEvents(ctx, board.CorridorID, board.ServiceDateLocal)
	if err != nil {
		g.logger.WarnContext(ctx, "cancellation guard audit skipped",
			slog.String("corridor_id", board.CorridorID),
			slog.String("service_date", board.ServiceDateLocal),
			slog.Any("error", err))
		return nil
	}

	result := &types.CancellationGuardResult{
		ResponseCanceledCount: responseCount,
		DBCanceledCount:       dbCount,
		GuardValid:            responseCount >= dbCount,
	}

	if !result.GuardValid {
		guardFailures.WithLabelValues(board.CorridorID).Inc()
		g.logger.ErrorContext(ctx, "ALERT cancellation guard failed: board hides recorded cancellations",
			slog.String("corridor_id", board.CorridorID),
			slog.String("service_date", board.ServiceDateLocal),
			slog.Int("response_canceled", responseCount),
			slog.Int("db_canceled", dbCount))
	}
	return result
}
