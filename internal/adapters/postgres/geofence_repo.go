package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

// GeofenceRepo implements ports.GeofenceRepository with pgx. Polygons are
// stored as a jsonb array of {lat,lng} objects.
type GeofenceRepo struct {
	db *DB
}

// NewGeofenceRepo creates a new GeofenceRepo.
func NewGeofenceRepo(db *DB) *GeofenceRepo {
	return &GeofenceRepo{db: db}
}

const geofenceColumns = `id, name, polygon, is_active, updated_at`

func scanGeofence(row pgx.Row) (*domain.Geofence, error) {
	var (
		g   domain.Geofence
		raw []byte
	)
	if err := row.Scan(&g.ID, &g.Name, &raw, &g.IsActive, &g.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &g.Polygon); err != nil {
		return nil, fmt.Errorf("decode polygon of geofence %s: %w", g.ID, err)
	}
	return &g, nil
}

// GetActive returns the most recently updated active geofence.
func (r *GeofenceRepo) GetActive(ctx context.Context) (*domain.Geofence, error) {
	g, err := scanGeofence(r.db.Pool.QueryRow(ctx, `
		SELECT `+geofenceColumns+`
		FROM geofences
		WHERE is_active
		ORDER BY updated_at DESC
		LIMIT 1
	`))
	if err != nil {
		return nil, notFound(err, "active geofence", "")
	}
	return g, nil
}

// GetByName returns a geofence by its unique name.
func (r *GeofenceRepo) GetByName(ctx context.Context, name string) (*domain.Geofence, error) {
	g, err := scanGeofence(r.db.Pool.QueryRow(ctx, `
		SELECT `+geofenceColumns+` FROM geofences WHERE name = $1
	`, name))
	if err != nil {
		return nil, notFound(err, "geofence", name)
	}
	return g, nil
}

// GetByID returns a geofence by UUID.
func (r *GeofenceRepo) GetByID(ctx context.Context, id string) (*domain.Geofence, error) {
	g, err := scanGeofence(r.db.Pool.QueryRow(ctx, `
		SELECT `+geofenceColumns+` FROM geofences WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, "geofence", id)
	}
	return g, nil
}

// ReplacePolygon overwrites the full vertex sequence in one statement.
func (r *GeofenceRepo) ReplacePolygon(ctx context.Context, id string, polygon domain.Polygon) error {
	data, err := json.Marshal(polygon)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE geofences SET polygon = $2::jsonb, updated_at = NOW() WHERE id = $1
	`, id, string(data))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Resource: "geofence", ID: id}
	}
	return nil
}
