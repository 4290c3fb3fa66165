package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"ferrycast/internal/types"
)

// PredictionRepository provides data access for the prediction_records
// table. Rows are written once at prediction time and never updated; the
// recorded score and snapshot are the evidence backtests replay against.
type PredictionRepository struct {
	db DBTX
}

// NewPredictionRepository creates a new PredictionRepository backed by the
// given database connection (pool or transaction).
func NewPredictionRepository(db DBTX) *PredictionRepository {
	return &PredictionRepository{db: db}
}

const predictionColumns = `p.id, p.route_id, p.corridor_id, p.sailing_id,
	p.sailing_departure_at, p.predicted_at, p.score, p.confidence,
	p.model_version, p.weather_snapshot`

func scanPrediction(row pgx.Row) (*types.PredictionRecord, error) {
	var (
		p         types.PredictionRecord
		sailingID *string
		snapshot  types.SnapshotColumn
	)
	err := row.Scan(
		&p.ID,
		&p.RouteID,
		&p.CorridorID,
		&sailingID,
		&p.SailingDepartureAt,
		&p.PredictedAt,
		&p.Score,
		&p.Confidence,
		&p.ModelVersion,
		&snapshot,
	)
	if err != nil {
		return nil, err
	}
	if sailingID != nil {
		p.SailingID = *sailingID
	}
	p.WeatherSnapshot = snapshot.Snapshot
	return &p, nil
}

// Insert writes a new immutable prediction row.
func (r *PredictionRepository) Insert(ctx context.Context, p *types.PredictionRecord) error {
	query := `INSERT INTO prediction_records
		(id, route_id, corridor_id, sailing_id, sailing_departure_at,
		 predicted_at, score, confidence, model_version, weather_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var sailingID *string
	if p.SailingID != "" {
		sailingID = &p.SailingID
	}
	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.RouteID,
		p.CorridorID,
		sailingID,
		p.SailingDepartureAt,
		p.PredictedAt,
		p.Score,
		p.Confidence,
		p.ModelVersion,
		types.SnapshotColumn{Snapshot: p.WeatherSnapshot},
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert prediction record", err)
	}
	return nil
}

// FindNearest returns the prediction for the route whose sailing departure
// lies closest to the given time within tolerance, or nil when none does.
// Used to enrich incoming outcome reports with the score that was live.
func (r *PredictionRepository) FindNearest(ctx context.Context, routeID string, around time.Time, tolerance time.Duration) (*types.PredictionRecord, error) {
	query := `SELECT ` + predictionColumns + ` FROM prediction_records p
		WHERE p.route_id = $1
		AND p.sailing_departure_at BETWEEN $2 AND $3
		ORDER BY ABS(EXTRACT(EPOCH FROM (p.sailing_departure_at - $4::timestamptz))), p.predicted_at DESC
		LIMIT 1`

	p, err := scanPrediction(r.db.QueryRow(ctx, query,
		routeID, around.Add(-tolerance), around.Add(tolerance), around))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to find nearest prediction", err)
	}
	return p, nil
}

// ListUnlinked returns up to limit predictions that have no outcome link
// yet, oldest first, so repeated backtest runs make forward progress.
func (r *PredictionRepository) ListUnlinked(ctx context.Context, limit int) ([]types.PredictionRecord, error) {
	query := `SELECT ` + predictionColumns + ` FROM prediction_records p
		LEFT JOIN prediction_outcome_links l ON l.prediction_id = p.id
		WHERE l.prediction_id IS NULL
		ORDER BY p.predicted_at
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list unlinked predictions", err)
	}
	defer rows.Close()

	var predictions []types.PredictionRecord
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan prediction row", err)
		}
		predictions = append(predictions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate prediction rows", err)
	}
	return predictions, nil
}
