package natsadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

const subscriptionBuffer = 16

// Subscriber implements ports.EventSubscriber. Booking status feeds are
// ordered JetStream consumers that replay the booking's history first, so a
// subscriber that arrives after a change still sees it.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber sharing conn. Without JetStream it falls
// back to core subscriptions, which only see live messages.
func NewSubscriber(conn *nats.Conn) *Subscriber {
	s := &Subscriber{conn: conn}
	if js, err := conn.JetStream(); err == nil {
		s.js = js
	} else {
		slog.Warn("jetstream unavailable, booking feeds will not replay", "error", err)
	}
	return s
}

// SubscribeBookingStatus streams status events of one booking, oldest first.
// The channel is closed after cancel is called or ctx is done.
func (s *Subscriber) SubscribeBookingStatus(ctx context.Context, bookingID string) (<-chan domain.BookingStatusEvent, func(), error) {
	msgs := make(chan *nats.Msg, subscriptionBuffer)
	sub, err := s.subscribeStatus(SubjectBookingStatus(bookingID), msgs)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan domain.BookingStatusEvent, subscriptionBuffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			close(done)
		})
	}

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg := <-msgs:
				var ev domain.BookingStatusEvent
				if err := json.Unmarshal(msg.Data, &ev); err != nil {
					slog.Warn("dropping malformed booking event", "subject", msg.Subject, "error", err)
					continue
				}
				select {
				case out <- ev:
				case <-done:
					return
				case <-ctx.Done():
					cancel()
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

func (s *Subscriber) subscribeStatus(subject string, msgs chan *nats.Msg) (*nats.Subscription, error) {
	if s.js != nil {
		sub, err := s.js.ChanSubscribe(subject, msgs, nats.OrderedConsumer(), nats.DeliverAll())
		if err == nil {
			return sub, nil
		}
		slog.Warn("jetstream replay unavailable, using live subscription", "subject", subject, "error", err)
	}
	return s.conn.ChanSubscribe(subject, msgs)
}

// SubscribeGeofenceUpdated calls handler for every geofence broadcast until Close.
func (s *Subscriber) SubscribeGeofenceUpdated(handler func(g *domain.Geofence)) error {
	sub, err := s.conn.Subscribe(SubjectGeofenceUpdated, func(msg *nats.Msg) {
		var g domain.Geofence
		if err := json.Unmarshal(msg.Data, &g); err != nil {
			slog.Warn("dropping malformed geofence event", "error", err)
			return
		}
		handler(&g)
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return nil
}

// Close unsubscribes long-lived subscriptions.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
}
