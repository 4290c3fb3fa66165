package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"ferrycast/internal/types"
)

// CorridorRepository provides data access for the corridors and terminals
// tables. Both tables are reference data seeded at deploy time.
type CorridorRepository struct {
	db DBTX
}

// NewCorridorRepository creates a new CorridorRepository backed by the given
// database connection (pool or transaction).
func NewCorridorRepository(db DBTX) *CorridorRepository {
	return &CorridorRepository{db: db}
}

const corridorColumns = `c.id, c.name, c.operator, c.origin_terminal_id,
	c.dest_terminal_id, c.outbound_route_id, c.return_route_id`

func scanCorridor(row pgx.Row) (*types.Corridor, error) {
	var c types.Corridor
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Operator,
		&c.OriginTerminalID,
		&c.DestTerminalID,
		&c.OutboundRouteID,
		&c.ReturnRouteID,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCorridor retrieves a corridor by ID.
func (r *CorridorRepository) GetCorridor(ctx context.Context, corridorID string) (*types.Corridor, error) {
	query := `SELECT ` + corridorColumns + ` FROM corridors c WHERE c.id = $1`

	corridor, err := scanCorridor(r.db.QueryRow(ctx, query, corridorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundCorridor, "corridor not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve corridor", err)
	}
	return corridor, nil
}

// ListCorridors returns all corridors ordered by ID.
func (r *CorridorRepository) ListCorridors(ctx context.Context) ([]types.Corridor, error) {
	query := `SELECT ` + corridorColumns + ` FROM corridors c ORDER BY c.id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list corridors", err)
	}
	defer rows.Close()

	var corridors []types.Corridor
	for rows.Next() {
		c, err := scanCorridor(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan corridor row", err)
		}
		corridors = append(corridors, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate corridor rows", err)
	}
	return corridors, nil
}

const terminalColumns = `t.id, t.name, t.town_name, t.zip_code, t.lat, t.lon`

func scanTerminal(row pgx.Row) (*types.Terminal, error) {
	var t types.Terminal
	err := row.Scan(&t.ID, &t.Name, &t.TownName, &t.ZIPCode, &t.Lat, &t.Lon)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTerminal retrieves a terminal by ID.
func (r *CorridorRepository) GetTerminal(ctx context.Context, terminalID string) (*types.Terminal, error) {
	query := `SELECT ` + terminalColumns + ` FROM terminals t WHERE t.id = $1`

	terminal, err := scanTerminal(r.db.QueryRow(ctx, query, terminalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundTerminal, "terminal not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve terminal", err)
	}
	return terminal, nil
}

// ListTerminals returns all terminals ordered by ID. Used by the ingestion
// job to fan out model fetches.
func (r *CorridorRepository) ListTerminals(ctx context.Context) ([]types.Terminal, error) {
	query := `SELECT ` + terminalColumns + ` FROM terminals t ORDER BY t.id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list terminals", err)
	}
	defer rows.Close()

	var terminals []types.Terminal
	for rows.Next() {
		t, err := scanTerminal(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan terminal row", err)
		}
		terminals = append(terminals, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate terminal rows", err)
	}
	return terminals, nil
}
