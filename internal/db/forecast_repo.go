package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"ferrycast/internal/types"
)

// ForecastRepository provides data access for the forecast_records table.
// The table is append-only: each ingestion run inserts new rows and never
// updates old ones, so superseded forecasts stay queryable for backtests.
type ForecastRepository struct {
	db DBTX
}

// NewForecastRepository creates a new ForecastRepository backed by the given
// database connection (pool or transaction).
func NewForecastRepository(db DBTX) *ForecastRepository {
	return &ForecastRepository{db: db}
}

const forecastColumns = `f.id, f.terminal_id, f.model, f.target_hour,
	f.wind_speed_mph, f.wind_gusts_mph, f.wind_direction_deg, f.advisory_level,
	f.ingested_at`

func scanForecast(row pgx.Row) (*types.ForecastRecord, error) {
	var f types.ForecastRecord
	err := row.Scan(
		&f.ID,
		&f.TerminalID,
		&f.Model,
		&f.TargetHour,
		&f.Snapshot.WindSpeedMph,
		&f.Snapshot.WindGustsMph,
		&f.Snapshot.WindDirectionDeg,
		&f.Snapshot.AdvisoryLevel,
		&f.IngestedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// InsertHours appends one row per hourly forecast value for the terminal and
// model. Rows are never updated in place.
func (r *ForecastRepository) InsertHours(ctx context.Context, records []types.ForecastRecord) error {
	query := `INSERT INTO forecast_records
		(terminal_id, model, target_hour, wind_speed_mph, wind_gusts_mph,
		 wind_direction_deg, advisory_level, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, rec := range records {
		_, err := r.db.Exec(ctx, query,
			rec.TerminalID,
			rec.Model,
			rec.TargetHour,
			rec.Snapshot.WindSpeedMph,
			rec.Snapshot.WindGustsMph,
			rec.Snapshot.WindDirectionDeg,
			rec.Snapshot.AdvisoryLevel,
			rec.IngestedAt,
		)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "failed to insert forecast record", err)
		}
	}
	return nil
}

// LatestForHour returns the most recently ingested forecast for the terminal
// whose target hour matches the departure time truncated to the hour, or nil
// when no forecast covers that hour.
func (r *ForecastRepository) LatestForHour(ctx context.Context, terminalID string, model types.ForecastModel, at time.Time) (*types.ForecastRecord, error) {
	query := `SELECT ` + forecastColumns + ` FROM forecast_records f
		WHERE f.terminal_id = $1 AND f.model = $2 AND f.target_hour = $3
		ORDER BY f.ingested_at DESC
		LIMIT 1`

	rec, err := scanForecast(r.db.QueryRow(ctx, query, terminalID, model, at.UTC().Truncate(time.Hour)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve forecast record", err)
	}
	return rec, nil
}

// LatestForTerminal returns the newest ingested forecast row for the
// terminal regardless of target hour. Used by health and debug surfaces to
// report ingestion recency.
func (r *ForecastRepository) LatestForTerminal(ctx context.Context, terminalID string) (*types.ForecastRecord, error) {
	query := `SELECT ` + forecastColumns + ` FROM forecast_records f
		WHERE f.terminal_id = $1
		ORDER BY f.ingested_at DESC
		LIMIT 1`

	rec, err := scanForecast(r.db.QueryRow(ctx, query, terminalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve latest forecast", err)
	}
	return rec, nil
}
