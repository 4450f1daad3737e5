package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/pkg/geospatial"
)

// StationRepo implements ports.StationRepository with pgx and PostGIS.
type StationRepo struct {
	db *DB
}

// NewStationRepo creates a new StationRepo.
func NewStationRepo(db *DB) *StationRepo {
	return &StationRepo{db: db}
}

const upsertStationSQL = `
	INSERT INTO charging_stations (station_id, location, rating, cost_per_kwh, charger_type)
	VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4, $5, NULLIF($6, ''))
	ON CONFLICT (station_id) DO UPDATE
	SET location = EXCLUDED.location, rating = EXCLUDED.rating,
	    cost_per_kwh = EXCLUDED.cost_per_kwh, charger_type = EXCLUDED.charger_type,
	    updated_at = NOW()
`

// UpsertBatch inserts or updates many stations using pgx.Batch. Insertion
// order becomes catalogue order.
func (r *StationRepo) UpsertBatch(ctx context.Context, stations []domain.Station) error {
	if len(stations) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range stations {
		batch.Queue(upsertStationSQL,
			s.ID, s.Location.Lon, s.Location.Lat, s.Rating, s.CostPerKWh, s.ChargerClass)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range stations {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// Count returns the number of stored stations.
func (r *StationRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM charging_stations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count stations: %w", err)
	}
	return n, nil
}

// GetStationCatalogue returns every station in insertion order.
func (r *StationRepo) GetStationCatalogue(ctx context.Context) ([]domain.Station, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT station_id,
		       ST_Y(location::geometry) AS lat,
		       ST_X(location::geometry) AS lon,
		       rating, cost_per_kwh, COALESCE(charger_type, '')
		FROM charging_stations
		ORDER BY id
	`)
	if err != nil {
		return nil, &domain.TransportError{Op: "query station catalogue", Err: err}
	}
	defer rows.Close()

	stations := make([]domain.Station, 0, 256)
	for rows.Next() {
		var s domain.Station
		if err := rows.Scan(
			&s.ID, &s.Location.Lat, &s.Location.Lon,
			&s.Rating, &s.CostPerKWh, &s.ChargerClass,
		); err != nil {
			return nil, &domain.TransportError{Op: "scan station", Err: err}
		}
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.TransportError{Op: "query station catalogue", Err: err}
	}
	return stations, nil
}

// FindNearestReachableStation returns the closest station within the range
// budget, measured on the sphere. Ties go to the earliest inserted station.
func (r *StationRepo) FindNearestReachableStation(ctx context.Context, q domain.ReachabilityQuery) (*domain.BestStationResult, error) {
	q = q.WithDefaults()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	budget := q.RangeBudgetKm()

	var (
		s     domain.Station
		distM float64
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT station_id,
		       ST_Y(location::geometry) AS lat,
		       ST_X(location::geometry) AS lon,
		       rating, cost_per_kwh, COALESCE(charger_type, ''),
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, false) AS distance
		FROM charging_stations
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3, false)
		ORDER BY distance, id
		LIMIT 1
	`, q.Position.Lon, q.Position.Lat, budget*1000).Scan(
		&s.ID, &s.Location.Lat, &s.Location.Lon,
		&s.Rating, &s.CostPerKWh, &s.ChargerClass,
		&distM,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, &domain.TransportError{Op: "query nearest station", Err: err}
	}

	dist := distM / 1000
	return &domain.BestStationResult{
		Station:          s,
		DistanceKm:       geospatial.RoundTo(dist, 2),
		RemainingRangeKm: geospatial.RoundTo(math.Max(0, budget-dist), 2),
		Query:            q.Position,
	}, nil
}
