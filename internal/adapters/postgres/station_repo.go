package postgres

import (
	"context"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

// StationRepo implements ports.StationRepository with pgx.
type StationRepo struct {
	db *DB
}

// NewStationRepo creates a new StationRepo.
func NewStationRepo(db *DB) *StationRepo {
	return &StationRepo{db: db}
}

// ListActive returns active stations ordered by name.
func (r *StationRepo) ListActive(ctx context.Context) ([]domain.Station, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, lat, lng, is_active
		FROM stations
		WHERE is_active
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []domain.Station
	for rows.Next() {
		var s domain.Station
		if err := rows.Scan(&s.ID, &s.Name, &s.Lat, &s.Lng, &s.IsActive); err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

// GetByID returns an active station by UUID.
func (r *StationRepo) GetByID(ctx context.Context, id string) (*domain.Station, error) {
	var s domain.Station
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, lat, lng, is_active FROM stations WHERE id = $1 AND is_active
	`, id).Scan(&s.ID, &s.Name, &s.Lat, &s.Lng, &s.IsActive)
	if err != nil {
		return nil, notFound(err, "station", id)
	}
	return &s, nil
}
