package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"ferrycast/internal/types"
	"ferrycast/internal/weather"
)

// ConditionsRepository reads the terminal_conditions table, which the
// operator status collaborator writes out-of-band. This service only reads
// it.
type ConditionsRepository struct {
	db DBTX
}

// NewConditionsRepository creates a new ConditionsRepository backed by the
// given database connection (pool or transaction).
func NewConditionsRepository(db DBTX) *ConditionsRepository {
	return &ConditionsRepository{db: db}
}

// LatestReading returns the newest operator-reported reading for the
// terminal, or nil when the terminal has never reported. Implements
// weather.OperatorConditionsStore.
func (r *ConditionsRepository) LatestReading(ctx context.Context, terminalID string) (*weather.OperatorReading, error) {
	query := `SELECT tc.terminal_id, tc.wind_speed_mph, tc.wind_gusts_mph,
		tc.wind_direction_deg, tc.advisory_level, tc.reported_at
		FROM terminal_conditions tc
		WHERE tc.terminal_id = $1
		ORDER BY tc.reported_at DESC
		LIMIT 1`

	var (
		reading  weather.OperatorReading
		gusts    *float64
		dir      *float64
		advisory *string
	)
	err := r.db.QueryRow(ctx, query, terminalID).Scan(
		&reading.TerminalID,
		&reading.WindSpeedMph,
		&gusts,
		&dir,
		&advisory,
		&reading.ReportedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve terminal conditions", err)
	}

	if gusts != nil {
		reading.WindGustsMph = *gusts
	}
	if dir != nil {
		reading.WindDirectionDeg = *dir
	}
	reading.Advisory = types.AdvisoryNone
	if advisory != nil {
		if lvl := types.AdvisoryLevel(*advisory); lvl.Valid() {
			reading.Advisory = lvl
		}
	}
	return &reading, nil
}
