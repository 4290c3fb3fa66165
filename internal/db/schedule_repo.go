package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"ferrycast/internal/types"
)

// ScheduleRepository provides data access for the sailings and
// sailing_events tables. Sailings are the operator-published schedule with
// live status; sailing_events is the append-only status event stream the
// cancellation guard audits against.
type ScheduleRepository struct {
	db DBTX
}

// NewScheduleRepository creates a new ScheduleRepository backed by the given
// database connection (pool or transaction).
func NewScheduleRepository(db DBTX) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const sailingColumns = `s.id, s.corridor_id, s.route_id, s.departure_time_local,
	s.arrival_time_local, s.direction, s.status, s.status_message, s.vessel_name`

func scanSailing(row pgx.Row) (*types.Sailing, error) {
	var (
		s             types.Sailing
		statusMessage *string
		vesselName    *string
	)
	err := row.Scan(
		&s.ID,
		&s.CorridorID,
		&s.RouteID,
		&s.DepartureTimeLocal,
		&s.ArrivalTimeLocal,
		&s.Direction,
		&s.Status,
		&statusMessage,
		&vesselName,
	)
	if err != nil {
		return nil, err
	}
	if statusMessage != nil {
		s.StatusMessage = *statusMessage
	}
	if vesselName != nil {
		s.VesselName = *vesselName
	}
	return &s, nil
}

// ListSailings returns every sailing for the corridor on the given local
// service date, both directions, ordered by departure time. Ties are broken
// by direction then sailing ID so the result order is deterministic.
func (r *ScheduleRepository) ListSailings(ctx context.Context, corridorID, serviceDate string) ([]types.Sailing, error) {
	query := `SELECT ` + sailingColumns + ` FROM sailings s
		WHERE s.corridor_id = $1 AND s.service_date_local = $2
		ORDER BY s.departure_time_local, s.direction, s.id`

	rows, err := r.db.Query(ctx, query, corridorID, serviceDate)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list sailings", err)
	}
	defer rows.Close()

	var sailings []types.Sailing
	for rows.Next() {
		s, err := scanSailing(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan sailing row", err)
		}
		sailings = append(sailings, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate sailing rows", err)
	}
	return sailings, nil
}

// CountCanceledEvents counts distinct sailings with a cancellation event on
// the corridor and service date. The cancellation guard compares this
// against the count visible in an assembled board.
func (r *ScheduleRepository) CountCanceledEvents(ctx context.Context, corridorID, serviceDate string) (int, error) {
	query := `SELECT COUNT(DISTINCT e.sailing_id) FROM sailing_events e
		JOIN sailings s ON s.id = e.sailing_id
		WHERE s.corridor_id = $1 AND s.service_date_local = $2
		AND e.event_type = 'canceled'`

	var count int
	if err := r.db.QueryRow(ctx, query, corridorID, serviceDate).Scan(&count); err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count canceled sailing events", err)
	}
	return count, nil
}
