package mountain

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRegistry reads the catalog from the mountains table.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry creates a new PostgreSQL mountain registry.
func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

const selectMountains = `
	SELECT id, name, COALESCE(short_name, ''), COALESCE(region, ''),
	       lat, lng,
	       snotel_station_id, snotel_station_name,
	       noaa_office, noaa_grid_x, noaa_grid_y,
	       COALESCE(timezone, '')
	FROM mountains
`

// List retrieves all active mountains ordered by sort order.
func (r *PostgresRegistry) List(ctx context.Context) ([]Mountain, error) {
	rows, err := r.pool.Query(ctx, selectMountains+`
		WHERE active
		ORDER BY sort_order, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query mountains: %w", err)
	}
	defer rows.Close()

	var mountains []Mountain
	for rows.Next() {
		m, err := scanMountain(rows)
		if err != nil {
			return nil, err
		}
		mountains = append(mountains, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mountains: %w", err)
	}

	return mountains, nil
}

// Get retrieves a single mountain by id.
func (r *PostgresRegistry) Get(ctx context.Context, id string) (*Mountain, error) {
	row := r.pool.QueryRow(ctx, selectMountains+`WHERE id = $1 AND active`, id)
	m, err := scanMountain(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMountainNotFound
		}
		return nil, err
	}
	return m, nil
}

func scanMountain(row pgx.Row) (*Mountain, error) {
	var (
		m           Mountain
		stationID   *string
		stationName *string
		office      *string
		gridX       *int
		gridY       *int
	)

	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.ShortName,
		&m.Region,
		&m.Lat,
		&m.Lng,
		&stationID,
		&stationName,
		&office,
		&gridX,
		&gridY,
		&m.Timezone,
	)
	if err != nil {
		return nil, err
	}

	if stationID != nil && *stationID != "" {
		m.SNOTEL = &SNOTELStation{StationID: *stationID}
		if stationName != nil {
			m.SNOTEL.Name = *stationName
		}
	}
	if office != nil && *office != "" && gridX != nil && gridY != nil {
		m.NOAA = &GridPoint{Office: *office, X: *gridX, Y: *gridY}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Ensure PostgresRegistry implements Registry interface.
var _ Registry = (*PostgresRegistry)(nil)
