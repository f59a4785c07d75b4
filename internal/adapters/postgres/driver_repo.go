package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

// DriverRepo implements ports.DriverRepository with pgx.
type DriverRepo struct {
	db *DB
}

// NewDriverRepo creates a new DriverRepo.
func NewDriverRepo(db *DB) *DriverRepo {
	return &DriverRepo{db: db}
}

const driverColumns = `id, full_name, mobile_number, COALESCE(toda_association, ''), body_number, status, is_online, created_at`

func scanDriver(row pgx.Row) (*domain.Driver, error) {
	var d domain.Driver
	if err := row.Scan(
		&d.ID, &d.FullName, &d.MobileNumber, &d.TODAAssociation, &d.BodyNumber,
		&d.Status, &d.IsOnline, &d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a driver and fills in ID and created_at.
func (r *DriverRepo) Create(ctx context.Context, d *domain.Driver) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO drivers (full_name, mobile_number, toda_association, body_number, status, is_online)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		RETURNING id, created_at
	`, d.FullName, d.MobileNumber, d.TODAAssociation, d.BodyNumber, string(d.Status), d.IsOnline,
	).Scan(&d.ID, &d.CreatedAt)
}

// GetByID returns a driver by UUID.
func (r *DriverRepo) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	d, err := scanDriver(r.db.Pool.QueryRow(ctx, `
		SELECT `+driverColumns+` FROM drivers WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, "driver", id)
	}
	return d, nil
}

// ListByStatus returns one page of drivers plus the total count for the status.
func (r *DriverRepo) ListByStatus(ctx context.Context, status domain.DriverStatus, offset, limit int) ([]domain.Driver, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM drivers WHERE status = $1`, string(status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+driverColumns+`
		FROM drivers
		WHERE status = $1
		ORDER BY created_at
		OFFSET $2 LIMIT $3
	`, string(status), offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var drivers []domain.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, 0, err
		}
		drivers = append(drivers, *d)
	}
	return drivers, total, rows.Err()
}

// UpdateStatus sets the approval status of a driver.
func (r *DriverRepo) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE drivers SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Resource: "driver", ID: id}
	}
	return nil
}

// SetOnline toggles dashboard availability.
func (r *DriverRepo) SetOnline(ctx context.Context, id string, online bool) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE drivers SET is_online = $2 WHERE id = $1`, id, online)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Resource: "driver", ID: id}
	}
	return nil
}
