package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

// BookingRepo implements ports.BookingRepository with pgx.
type BookingRepo struct {
	db *DB
}

// NewBookingRepo creates a new BookingRepo.
func NewBookingRepo(db *DB) *BookingRepo {
	return &BookingRepo{db: db}
}

// fare travels as text so numeric precision survives the round trip.
const bookingColumns = `
	id, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, station_id,
	trip_type, fare::text, status, customer_phone, driver_id, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b    domain.Booking
		fare string
	)
	if err := row.Scan(
		&b.ID, &b.PickupLat, &b.PickupLng, &b.DropoffLat, &b.DropoffLng, &b.StationID,
		&b.TripType, &fare, &b.Status, &b.CustomerPhone, &b.DriverID, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(fare)
	if err != nil {
		return nil, fmt.Errorf("decode fare of booking %s: %w", b.ID, err)
	}
	b.Fare = amount
	return &b, nil
}

// Create inserts a booking and fills in ID and timestamps.
func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	if b.Status == "" {
		b.Status = domain.BookingPending
	}
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO bookings (pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, station_id,
		                      trip_type, fare, status, customer_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9)
		RETURNING id, created_at, updated_at
	`, b.PickupLat, b.PickupLng, b.DropoffLat, b.DropoffLng, b.StationID,
		string(b.TripType), b.Fare.String(), string(b.Status), b.CustomerPhone,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// GetByID returns a booking by UUID.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.Pool.QueryRow(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	return b, nil
}

// ListByStatus returns bookings in a status, oldest first.
func (r *BookingRepo) ListByStatus(ctx context.Context, status domain.BookingStatus, limit int) ([]domain.Booking, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// TransitionStatus performs a conditional update so two drivers cannot both
// accept the same booking.
func (r *BookingRepo) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus, driverID *string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.Pool.QueryRow(ctx, `
		UPDATE bookings
		SET status = $3, driver_id = COALESCE($4, driver_id), updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+bookingColumns,
		id, string(from), string(to), driverID,
	))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Nothing updated: either the booking is gone or someone got there first.
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, &domain.NotFoundError{Resource: "booking", ID: id}
	}
	return nil, domain.ErrStatusConflict
}
