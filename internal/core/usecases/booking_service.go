package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pilartoda/trikeride/internal/core/domain"
	"github.com/pilartoda/trikeride/internal/core/ports"
	"github.com/pilartoda/trikeride/internal/pkg/fare"
	"github.com/pilartoda/trikeride/internal/pkg/location"
	"github.com/pilartoda/trikeride/internal/pkg/metrics"
	"github.com/pilartoda/trikeride/internal/pkg/telemetry"
)

// BookingDeps groups the collaborators of a BookingService. Publisher,
// Subscriber and Scheduler are optional.
type BookingDeps struct {
	Geofences  *GeofenceService
	Stations   *StationService
	Bookings   ports.BookingRepository
	Drivers    ports.DriverRepository
	Publisher  ports.EventPublisher
	Subscriber ports.EventSubscriber
	Scheduler  ports.BookingScheduler
}

// BookingOptions holds the tunables of a BookingService.
type BookingOptions struct {
	Schedule      fare.Schedule
	Location      location.Options
	PendingExpiry time.Duration
}

type flowSession struct {
	flow     *BookingFlow
	stop     func()
	lastSeen time.Time
}

// BookingService owns rider sessions and the driver-side booking lifecycle.
type BookingService struct {
	deps BookingDeps
	opts BookingOptions

	mu       sync.Mutex
	sessions map[string]*flowSession
}

// NewBookingService creates a new BookingService.
func NewBookingService(deps BookingDeps, opts BookingOptions) *BookingService {
	return &BookingService{
		deps:     deps,
		opts:     opts,
		sessions: make(map[string]*flowSession),
	}
}

// StartSession snapshots the active geofence and stations into a new flow.
func (s *BookingService) StartSession(ctx context.Context) (*BookingFlow, error) {
	g, err := s.deps.Geofences.Active(ctx)
	if err != nil {
		return nil, err
	}
	stations, err := s.deps.Stations.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	flow := NewBookingFlow(uuid.NewString(), g.Polygon, stations, s.opts.Schedule)

	s.mu.Lock()
	s.sessions[flow.ID()] = &flowSession{flow: flow, lastSeen: time.Now()}
	s.mu.Unlock()
	metrics.ActiveFlowSessions.Inc()

	slog.DebugContext(ctx, "booking session started", "session_id", flow.ID(), "stations", len(stations))
	return flow, nil
}

// Session returns an open rider session.
func (s *BookingService) Session(id string) (*BookingFlow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	sess.lastSeen = time.Now()
	return sess.flow, nil
}

// EndSession tears a session down and stops its change-feed subscription.
func (s *BookingService) EndSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	if sess.stop != nil {
		sess.stop()
	}
	sess.flow.Reset()
	metrics.ActiveFlowSessions.Dec()
	return nil
}

// Close ends every open session.
func (s *BookingService) Close() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		_ = s.EndSession(id)
	}
}

// SweepIdle ends sessions not looked up since now minus maxIdle and returns
// how many were ended.
func (s *BookingService) SweepIdle(now time.Time, maxIdle time.Duration) int {
	cutoff := now.Add(-maxIdle)
	s.mu.Lock()
	var idle []string
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	s.mu.Unlock()

	n := 0
	for _, id := range idle {
		if s.EndSession(id) == nil {
			n++
		}
	}
	if n > 0 {
		slog.Info("idle booking sessions ended", "count", n, "max_idle", maxIdle)
	}
	return n
}

// Verify runs the location gate for a session.
func (s *BookingService) Verify(ctx context.Context, id string, src location.Source) (FlowState, error) {
	flow, err := s.Session(id)
	if err != nil {
		return "", err
	}
	state, err := flow.Verify(ctx, src, s.opts.Location)
	switch {
	case err == nil:
		metrics.LocationVerifications.WithLabelValues("verified").Inc()
	case errors.Is(err, domain.ErrStaleResult), errors.Is(err, domain.ErrInvalidTransition):
	case domain.IsDeviceLocation(err):
		metrics.LocationVerifications.WithLabelValues("device_error").Inc()
	default:
		metrics.LocationVerifications.WithLabelValues("outside_boundary").Inc()
	}
	return state, err
}

// SetPickup places the pickup for a session.
func (s *BookingService) SetPickup(id string, c domain.Coordinate) error {
	flow, err := s.Session(id)
	if err != nil {
		return err
	}
	if err := flow.SetPickup(c); err != nil {
		if domain.ValidationKindOf(err) == domain.OutsideGeofence {
			metrics.PickupRejections.Inc()
		}
		return err
	}
	return nil
}

// Confirm persists the pending booking, schedules its expiry and starts
// following its status changes.
func (s *BookingService) Confirm(ctx context.Context, id, customerPhone string) (*domain.Booking, error) {
	flow, err := s.Session(id)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.Tracer().Start(ctx, "BookingService.Confirm")
	defer span.End()

	b, err := flow.Confirm(ctx, s.deps.Bookings, customerPhone)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.id", b.ID), attribute.String("booking.trip_type", string(b.TripType)))
	metrics.BookingsCreated.WithLabelValues(string(b.TripType)).Inc()

	// Subscribe before anything can move the booking on.
	s.track(id, flow, b.ID)

	s.publish(ctx, b.ID, domain.BookingPending, "")

	if s.deps.Scheduler != nil && s.opts.PendingExpiry > 0 {
		if err := s.deps.Scheduler.SchedulePendingExpiry(ctx, b.ID, s.opts.PendingExpiry); err != nil {
			slog.WarnContext(ctx, "pending expiry not scheduled", "booking_id", b.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "booking created",
		"booking_id", b.ID,
		"trip_type", b.TripType,
		"fare", b.Fare.StringFixed(2),
	)
	return b, nil
}

// track subscribes the session to its booking's change feed and then
// re-reads the booking once, so a change that beat the subscription is not
// lost. The subscription outlives the request that created the booking.
func (s *BookingService) track(sessionID string, flow *BookingFlow, bookingID string) {
	if s.deps.Subscriber == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, unsubscribe, err := s.deps.Subscriber.SubscribeBookingStatus(ctx, bookingID)
	if err != nil {
		cancel()
		slog.Warn("booking status subscription failed", "booking_id", bookingID, "error", err)
		return
	}
	stop := func() {
		cancel()
		unsubscribe()
	}

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.flow != flow {
		s.mu.Unlock()
		stop()
		return
	}
	if sess.stop != nil {
		sess.stop()
	}
	sess.stop = stop
	s.mu.Unlock()

	go func() {
		defer stop()
		// Catch up on changes made before the subscription was live.
		if b, err := s.deps.Bookings.GetByID(ctx, bookingID); err == nil {
			if err := flow.Apply(ctx, eventFor(b), s.deps.Drivers); errors.Is(err, domain.ErrStaleResult) {
				return
			}
			if flow.State().Terminal() {
				return
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := flow.Apply(ctx, ev, s.deps.Drivers); err != nil {
					if errors.Is(err, domain.ErrStaleResult) {
						return
					}
					slog.Warn("booking status event not applied", "booking_id", bookingID, "error", err)
					continue
				}
				if flow.State().Terminal() {
					return
				}
			}
		}
	}()
}

// Refresh re-reads the session's booking from the store and applies it, for
// clients that poll instead of holding a subscription.
func (s *BookingService) Refresh(ctx context.Context, id string) (FlowSnapshot, error) {
	flow, err := s.Session(id)
	if err != nil {
		return FlowSnapshot{}, err
	}
	bookingID := flow.BookingID()
	if bookingID == "" {
		return flow.Snapshot(), nil
	}
	b, err := s.deps.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return FlowSnapshot{}, err
	}
	if err := flow.Apply(ctx, eventFor(b), s.deps.Drivers); err != nil && !errors.Is(err, domain.ErrStaleResult) {
		return flow.Snapshot(), err
	}
	return flow.Snapshot(), nil
}

// Reset abandons the session's current attempt. The booking itself, if any,
// is left to the expiry workflow.
func (s *BookingService) Reset(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	var stop func()
	if ok {
		stop = sess.stop
		sess.stop = nil
	}
	s.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	if stop != nil {
		stop()
	}
	sess.flow.Reset()
	return nil
}

// CancelSearch withdraws the session's pending booking.
func (s *BookingService) CancelSearch(ctx context.Context, id string) (*domain.Booking, error) {
	flow, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	bookingID := flow.BookingID()
	if bookingID == "" {
		return nil, fmt.Errorf("%w: no booking to cancel", domain.ErrInvalidTransition)
	}
	b, err := s.transition(ctx, bookingID, domain.BookingPending, domain.BookingCancelled, nil)
	if err != nil {
		return nil, err
	}
	_ = flow.Apply(ctx, eventFor(b), s.deps.Drivers)
	return b, nil
}

// Quote prices a trip without a session. A non-empty stationID overrides dropoff.
func (s *BookingService) Quote(ctx context.Context, pickup, dropoff domain.Coordinate, stationID string) (domain.FareQuote, domain.TripClassification, error) {
	if !pickup.Valid() {
		return domain.FareQuote{}, domain.TripClassification{}, invalidCoordinate("pickup")
	}

	var station *domain.Station
	if stationID != "" {
		st, err := s.deps.Stations.GetByID(ctx, stationID)
		if err != nil {
			if domain.IsNotFound(err) {
				return domain.FareQuote{}, domain.TripClassification{}, fmt.Errorf("%w: %s", domain.ErrUnknownStation, stationID)
			}
			return domain.FareQuote{}, domain.TripClassification{}, err
		}
		station = st
		dropoff = st.Coordinate()
	} else if !dropoff.Valid() {
		return domain.FareQuote{}, domain.TripClassification{}, invalidCoordinate("dropoff")
	}

	g, err := s.deps.Geofences.Active(ctx)
	if err != nil {
		return domain.FareQuote{}, domain.TripClassification{}, err
	}
	cls := ClassifyTrip(dropoff, station, g.Polygon)
	return QuoteTrip(s.opts.Schedule, cls.Type, pickup, dropoff), cls, nil
}

// GetBooking returns a booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	return s.deps.Bookings.GetByID(ctx, id)
}

// ListPending returns the newest pending bookings for the driver dashboard.
func (s *BookingService) ListPending(ctx context.Context, limit int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.deps.Bookings.ListByStatus(ctx, domain.BookingPending, limit)
}

// Accept assigns a pending booking to an approved driver.
func (s *BookingService) Accept(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	d, err := s.deps.Drivers.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if d.Status != domain.DriverApproved {
		return nil, fmt.Errorf("%w: driver %s is %s", domain.ErrInvalidTransition, driverID, d.Status)
	}
	return s.transition(ctx, bookingID, domain.BookingPending, domain.BookingAccepted, &driverID)
}

// Complete finishes a trip. Only the assigned driver may complete it.
func (s *BookingService) Complete(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	b, err := s.deps.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.DriverID == nil || *b.DriverID != driverID {
		return nil, fmt.Errorf("%w: booking %s is not assigned to driver %s", domain.ErrInvalidTransition, bookingID, driverID)
	}
	return s.transition(ctx, bookingID, domain.BookingAccepted, domain.BookingCompleted, nil)
}

// ExpirePending cancels a booking nobody accepted. It reports false when the
// booking had already left pending.
func (s *BookingService) ExpirePending(ctx context.Context, bookingID string) (bool, error) {
	_, err := s.transition(ctx, bookingID, domain.BookingPending, domain.BookingCancelled, nil)
	if errors.Is(err, domain.ErrStatusConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	slog.InfoContext(ctx, "pending booking expired", "booking_id", bookingID)
	return true, nil
}

func (s *BookingService) transition(ctx context.Context, bookingID string, from, to domain.BookingStatus, driverID *string) (*domain.Booking, error) {
	b, err := s.deps.Bookings.TransitionStatus(ctx, bookingID, from, to, driverID)
	if err != nil {
		return nil, err
	}
	metrics.BookingStatusChanges.WithLabelValues(string(to)).Inc()

	var driver string
	if b.DriverID != nil {
		driver = *b.DriverID
	}
	s.publish(ctx, b.ID, to, driver)
	return b, nil
}

func (s *BookingService) publish(ctx context.Context, bookingID string, status domain.BookingStatus, driverID string) {
	if s.deps.Publisher == nil {
		return
	}
	ev := &domain.BookingStatusEvent{
		BookingID: bookingID,
		Status:    status,
		DriverID:  driverID,
		Time:      time.Now().UTC(),
	}
	if err := s.deps.Publisher.PublishBookingStatus(ctx, ev); err != nil {
		slog.WarnContext(ctx, "booking status publish failed", "booking_id", bookingID, "status", status, "error", err)
	}
}

func eventFor(b *domain.Booking) domain.BookingStatusEvent {
	ev := domain.BookingStatusEvent{BookingID: b.ID, Status: b.Status, Time: b.UpdatedAt}
	if b.DriverID != nil {
		ev.DriverID = *b.DriverID
	}
	return ev
}
