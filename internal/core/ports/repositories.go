package ports

import (
	"context"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

// GeofenceRepository persists service-area boundaries.
type GeofenceRepository interface {
	GetActive(ctx context.Context) (*domain.Geofence, error)
	GetByName(ctx context.Context, name string) (*domain.Geofence, error)
	GetByID(ctx context.Context, id string) (*domain.Geofence, error)
	// ReplacePolygon overwrites the whole vertex sequence of one geofence.
	ReplacePolygon(ctx context.Context, id string, polygon domain.Polygon) error
}

// StationRepository reads the admin-curated station list.
type StationRepository interface {
	ListActive(ctx context.Context) ([]domain.Station, error)
	GetByID(ctx context.Context, id string) (*domain.Station, error)
}

// BookingRepository persists ride bookings.
type BookingRepository interface {
	// Create inserts a booking and fills in the store-assigned ID and timestamps.
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	ListByStatus(ctx context.Context, status domain.BookingStatus, limit int) ([]domain.Booking, error)
	// TransitionStatus moves a booking from one status to another and returns
	// domain.ErrStatusConflict when the booking is no longer in from.
	TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus, driverID *string) (*domain.Booking, error)
}

// DriverRepository persists drivers.
type DriverRepository interface {
	Create(ctx context.Context, d *domain.Driver) error
	GetByID(ctx context.Context, id string) (*domain.Driver, error)
	ListByStatus(ctx context.Context, status domain.DriverStatus, offset, limit int) ([]domain.Driver, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error
	SetOnline(ctx context.Context, id string, online bool) error
}
