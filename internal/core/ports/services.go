package ports

import (
	"context"
	"time"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

// EventPublisher publishes change-feed events to a message broker.
type EventPublisher interface {
	PublishBookingStatus(ctx context.Context, event *domain.BookingStatusEvent) error
	PublishGeofenceUpdated(ctx context.Context, geofence *domain.Geofence) error
}

// EventSubscriber delivers change-feed events for a single booking until the
// returned cancel function is called. Events arrive in broker order.
type EventSubscriber interface {
	SubscribeBookingStatus(ctx context.Context, bookingID string) (<-chan domain.BookingStatusEvent, func(), error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// BookingScheduler schedules deferred work on a booking.
type BookingScheduler interface {
	SchedulePendingExpiry(ctx context.Context, bookingID string, after time.Duration) error
}
