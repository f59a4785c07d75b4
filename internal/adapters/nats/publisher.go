package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

const (
	bookingStatusPrefix = "trikeride.booking.status."
	// SubjectBookingStatusAll matches every booking status event.
	SubjectBookingStatusAll = bookingStatusPrefix + ">"
	// SubjectGeofenceUpdated carries the new polygon after an admin save.
	SubjectGeofenceUpdated = "trikeride.geofence.updated"

	bookingStream = "TRIKERIDE_BOOKINGS"
)

// SubjectBookingStatus is the change-feed subject of one booking.
func SubjectBookingStatus(bookingID string) string {
	return bookingStatusPrefix + bookingID
}

// Connect opens a NATS connection that keeps retrying in the background.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// Publisher implements ports.EventPublisher. Booking status events go through
// JetStream so the expiry worker and late subscribers can replay them;
// geofence updates are plain fire-and-forget messages.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher enables JetStream on conn and ensures the booking stream exists.
func NewPublisher(conn *nats.Conn) (*Publisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      bookingStream,
		Subjects:  []string{SubjectBookingStatusAll},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishBookingStatus implements ports.EventPublisher.
func (p *Publisher) PublishBookingStatus(ctx context.Context, ev *domain.BookingStatusEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectBookingStatus(ev.BookingID), data, nats.Context(ctx))
	return err
}

// PublishGeofenceUpdated implements ports.EventPublisher.
func (p *Publisher) PublishGeofenceUpdated(ctx context.Context, g *domain.Geofence) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return p.conn.Publish(SubjectGeofenceUpdated, data)
}
