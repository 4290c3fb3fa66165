package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"ferrycast/internal/scoring"
	"ferrycast/internal/types"
)

// OutcomeRepository provides data access for the outcome_log table. The
// table is append-only ground truth: corrections are new rows, never
// updates, preserving auditability.
type OutcomeRepository struct {
	db DBTX
}

// NewOutcomeRepository creates a new OutcomeRepository backed by the given
// database connection (pool or transaction).
func NewOutcomeRepository(db DBTX) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

const outcomeColumns = `o.id, o.route_id, o.observed_time, o.observed_outcome,
	o.operator_reported_status, o.prediction_score, o.model_version, o.created_at`

func scanOutcome(row pgx.Row) (*types.OutcomeLog, error) {
	var (
		o              types.OutcomeLog
		operatorStatus *string
		modelVersion   *string
	)
	err := row.Scan(
		&o.ID,
		&o.RouteID,
		&o.ObservedTime,
		&o.ObservedOutcome,
		&operatorStatus,
		&o.PredictionScore,
		&modelVersion,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if operatorStatus != nil {
		o.OperatorReportedStatus = *operatorStatus
	}
	if modelVersion != nil {
		o.ModelVersion = *modelVersion
	}
	return &o, nil
}

// Insert appends a new outcome row.
func (r *OutcomeRepository) Insert(ctx context.Context, o *types.OutcomeLog) error {
	query := `INSERT INTO outcome_log
		(id, route_id, observed_time, observed_outcome, operator_reported_status,
		 prediction_score, model_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var operatorStatus, modelVersion *string
	if o.OperatorReportedStatus != "" {
		operatorStatus = &o.OperatorReportedStatus
	}
	if o.ModelVersion != "" {
		modelVersion = &o.ModelVersion
	}
	_, err := r.db.Exec(ctx, query,
		o.ID,
		o.RouteID,
		o.ObservedTime,
		o.ObservedOutcome,
		operatorStatus,
		o.PredictionScore,
		modelVersion,
		o.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert outcome", err)
	}
	return nil
}

// FindMatch returns the outcome for the route whose observed time lies
// closest to the given departure within tolerance, or nil when no outcome
// qualifies.
func (r *OutcomeRepository) FindMatch(ctx context.Context, routeID string, departure time.Time, tolerance time.Duration) (*types.OutcomeLog, error) {
	query := `SELECT ` + outcomeColumns + ` FROM outcome_log o
		WHERE o.route_id = $1
		AND o.observed_time BETWEEN $2 AND $3
		ORDER BY ABS(EXTRACT(EPOCH FROM (o.observed_time - $4::timestamptz)))
		LIMIT 1`

	outcome, err := scanOutcome(r.db.QueryRow(ctx, query,
		routeID, departure.Add(-tolerance), departure.Add(tolerance), departure))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to match outcome", err)
	}
	return outcome, nil
}

// Recent returns up to limit outcome rows, newest observed first.
func (r *OutcomeRepository) Recent(ctx context.Context, limit int) ([]types.OutcomeLog, error) {
	query := `SELECT ` + outcomeColumns + ` FROM outcome_log o
		ORDER BY o.observed_time DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list recent outcomes", err)
	}
	defer rows.Close()

	var outcomes []types.OutcomeLog
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan outcome row", err)
		}
		outcomes = append(outcomes, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate outcome rows", err)
	}
	return outcomes, nil
}

// windBandMph bounds what counts as comparable wind when matching history.
const windBandMph = 5.0

// HistoricalStats aggregates linked outcomes for the route whose recorded
// prediction wind was within windBandMph of the given wind speed. A route
// with no comparable history returns nil.
func (r *OutcomeRepository) HistoricalStats(ctx context.Context, routeID string, windSpeedMph float64) (*scoring.HistoricalMatch, error) {
	query := `SELECT COUNT(*),
		COALESCE(AVG(CASE WHEN o.observed_outcome = 'delayed' THEN 1.0 ELSE 0.0 END), 0),
		COALESCE(AVG(CASE WHEN o.observed_outcome = 'canceled' THEN 1.0 ELSE 0.0 END), 0)
		FROM prediction_outcome_links l
		JOIN prediction_records p ON p.id = l.prediction_id
		JOIN outcome_log o ON o.id = l.outcome_id
		WHERE p.route_id = $1
		AND p.weather_snapshot IS NOT NULL
		AND (p.weather_snapshot->>'wind_speed_mph')::float BETWEEN $2 AND $3`

	var match scoring.HistoricalMatch
	err := r.db.QueryRow(ctx, query, routeID, windSpeedMph-windBandMph, windSpeedMph+windBandMph).Scan(
		&match.SampleCount,
		&match.DelayRate,
		&match.CancelRate,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to aggregate historical outcomes", err)
	}
	if match.SampleCount == 0 {
		return nil, nil
	}
	return &match, nil
}
