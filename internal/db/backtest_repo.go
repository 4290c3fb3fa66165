package db

import (
	"context"
	"time"

	"ferrycast/internal/types"
)

// BacktestRepository provides data access for the prediction_outcome_links
// table and the derived accuracy view. The links table carries a unique
// constraint on prediction_id; linking is therefore naturally idempotent.
type BacktestRepository struct {
	db DBTX
}

// NewBacktestRepository creates a new BacktestRepository backed by the given
// database connection (pool or transaction).
func NewBacktestRepository(db DBTX) *BacktestRepository {
	return &BacktestRepository{db: db}
}

// Link records that the prediction was evaluated against the outcome.
// Returns false when the prediction is already linked, which repeated
// backtest runs treat as a no-op rather than an error.
func (r *BacktestRepository) Link(ctx context.Context, predictionID, outcomeID string, linkedAt time.Time) (bool, error) {
	query := `INSERT INTO prediction_outcome_links (prediction_id, outcome_id, linked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (prediction_id) DO NOTHING`

	tag, err := r.db.Exec(ctx, query, predictionID, outcomeID, linkedAt)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to link prediction to outcome", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ComputeMetrics recomputes accuracy metrics from the linked set, grouped
// by model version and corridor. Empty filter values match everything. A
// hit is a prediction whose score-implied probability landed on the right
// side of 50 for the observed outcome; calibration error is the Brier score
// over score/100.
func (r *BacktestRepository) ComputeMetrics(ctx context.Context, modelVersion, corridorID string) ([]types.AccuracyMetrics, error) {
	query := `SELECT p.model_version, p.corridor_id, COUNT(*),
		AVG(CASE WHEN (p.score >= 50) = (o.observed_outcome IN ('delayed', 'canceled'))
			THEN 1.0 ELSE 0.0 END),
		AVG(POWER(p.score / 100.0 -
			CASE WHEN o.observed_outcome IN ('delayed', 'canceled') THEN 1.0 ELSE 0.0 END, 2)),
		AVG(p.score::float),
		AVG(CASE WHEN o.observed_outcome IN ('delayed', 'canceled') THEN 1.0 ELSE 0.0 END)
		FROM prediction_outcome_links l
		JOIN prediction_records p ON p.id = l.prediction_id
		JOIN outcome_log o ON o.id = l.outcome_id
		WHERE ($1 = '' OR p.model_version = $1)
		AND ($2 = '' OR p.corridor_id = $2)
		GROUP BY p.model_version, p.corridor_id
		ORDER BY p.model_version, p.corridor_id`

	rows, err := r.db.Query(ctx, query, modelVersion, corridorID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to compute accuracy metrics", err)
	}
	defer rows.Close()

	var metrics []types.AccuracyMetrics
	for rows.Next() {
		var m types.AccuracyMetrics
		err := rows.Scan(
			&m.ModelVersion,
			&m.CorridorID,
			&m.SampleSize,
			&m.HitRate,
			&m.CalibrationError,
			&m.MeanScore,
			&m.DisruptionRate,
		)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan accuracy row", err)
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate accuracy rows", err)
	}
	return metrics, nil
}
