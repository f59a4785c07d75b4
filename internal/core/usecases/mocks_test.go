package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

var pilarVillage = domain.Polygon{
	{Lat: 14.4325, Lng: 120.9835},
	{Lat: 14.4330, Lng: 120.9925},
	{Lat: 14.4240, Lng: 120.9950},
	{Lat: 14.4190, Lng: 120.9890},
	{Lat: 14.4215, Lng: 120.9820},
}

var (
	insideVillage  = domain.Coordinate{Lat: 14.426, Lng: 120.988}
	nearVillage    = domain.Coordinate{Lat: 14.430, Lng: 120.990}
	outsideVillage = domain.Coordinate{Lat: 14.40, Lng: 120.95}
)

var testStations = []domain.Station{
	{ID: "S1", Name: "Zapote Terminal", Lat: 14.40, Lng: 120.95, IsActive: true},
	{ID: "S2", Name: "Village Chapel", Lat: 14.428, Lng: 120.989, IsActive: true},
}

var errStore = errors.New("connection reset by peer")

// --- Mock GeofenceRepository ---

type mockGeofenceRepo struct {
	getActiveFn      func(ctx context.Context) (*domain.Geofence, error)
	getByNameFn      func(ctx context.Context, name string) (*domain.Geofence, error)
	replacePolygonFn func(ctx context.Context, id string, polygon domain.Polygon) error
}

func (m *mockGeofenceRepo) GetActive(ctx context.Context) (*domain.Geofence, error) {
	if m.getActiveFn != nil {
		return m.getActiveFn(ctx)
	}
	return &domain.Geofence{ID: "g1", Name: "Pilar Village", Polygon: pilarVillage.Clone(), IsActive: true}, nil
}

func (m *mockGeofenceRepo) GetByName(ctx context.Context, name string) (*domain.Geofence, error) {
	if m.getByNameFn != nil {
		return m.getByNameFn(ctx, name)
	}
	return nil, &domain.NotFoundError{Resource: "geofence", ID: name}
}

func (m *mockGeofenceRepo) GetByID(ctx context.Context, id string) (*domain.Geofence, error) {
	return nil, &domain.NotFoundError{Resource: "geofence", ID: id}
}

func (m *mockGeofenceRepo) ReplacePolygon(ctx context.Context, id string, polygon domain.Polygon) error {
	if m.replacePolygonFn != nil {
		return m.replacePolygonFn(ctx, id, polygon)
	}
	return nil
}

// --- Mock StationRepository ---

type mockStationRepo struct{}

func (m *mockStationRepo) ListActive(ctx context.Context) ([]domain.Station, error) {
	return append([]domain.Station(nil), testStations...), nil
}

func (m *mockStationRepo) GetByID(ctx context.Context, id string) (*domain.Station, error) {
	for _, st := range testStations {
		if st.ID == id {
			st := st
			return &st, nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "station", ID: id}
}

// --- Mock BookingRepository ---

type mockBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*domain.Booking
	next     int
	createFn func(ctx context.Context, b *domain.Booking) error
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{bookings: make(map[string]*domain.Booking)}
}

func (m *mockBookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, b); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	b.ID = fmt.Sprintf("b%d", m.next)
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "booking", ID: id}
	}
	cp := *b
	return &cp, nil
}

func (m *mockBookingRepo) ListByStatus(ctx context.Context, status domain.BookingStatus, limit int) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.Status == status && len(out) < limit {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockBookingRepo) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus, driverID *string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "booking", ID: id}
	}
	if b.Status != from {
		return nil, domain.ErrStatusConflict
	}
	b.Status = to
	if driverID != nil {
		d := *driverID
		b.DriverID = &d
	}
	b.UpdatedAt = time.Now()
	cp := *b
	return &cp, nil
}

// --- Mock DriverRepository ---

type mockDriverRepo struct {
	mu      sync.Mutex
	drivers map[string]*domain.Driver
	getFn   func(ctx context.Context, id string) (*domain.Driver, error)
}

func newMockDriverRepo(drivers ...domain.Driver) *mockDriverRepo {
	m := &mockDriverRepo{drivers: make(map[string]*domain.Driver)}
	for _, d := range drivers {
		d := d
		m.drivers[d.ID] = &d
	}
	return m
}

func (m *mockDriverRepo) Create(ctx context.Context, d *domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = "d-new"
	d.CreatedAt = time.Now()
	cp := *d
	m.drivers[d.ID] = &cp
	return nil
}

func (m *mockDriverRepo) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "driver", ID: id}
	}
	cp := *d
	return &cp, nil
}

func (m *mockDriverRepo) ListByStatus(ctx context.Context, status domain.DriverStatus, offset, limit int) ([]domain.Driver, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Driver
	for _, d := range m.drivers {
		if d.Status == status {
			out = append(out, *d)
		}
	}
	return out, len(out), nil
}

func (m *mockDriverRepo) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return &domain.NotFoundError{Resource: "driver", ID: id}
	}
	d.Status = status
	return nil
}

func (m *mockDriverRepo) SetOnline(ctx context.Context, id string, online bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return &domain.NotFoundError{Resource: "driver", ID: id}
	}
	d.IsOnline = online
	return nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher / EventSubscriber ---

type mockBroker struct {
	mu        sync.Mutex
	published []domain.BookingStatusEvent
	geofences int
	subs      map[string]chan domain.BookingStatusEvent
}

func newMockBroker() *mockBroker {
	return &mockBroker{subs: make(map[string]chan domain.BookingStatusEvent)}
}

func (m *mockBroker) PublishBookingStatus(ctx context.Context, ev *domain.BookingStatusEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, *ev)
	if ch, ok := m.subs[ev.BookingID]; ok {
		select {
		case ch <- *ev:
		default:
		}
	}
	return nil
}

func (m *mockBroker) PublishGeofenceUpdated(ctx context.Context, g *domain.Geofence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geofences++
	return nil
}

func (m *mockBroker) SubscribeBookingStatus(ctx context.Context, bookingID string) (<-chan domain.BookingStatusEvent, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan domain.BookingStatusEvent, 16)
	m.subs[bookingID] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, bookingID)
			m.mu.Unlock()
		})
	}, nil
}

func (m *mockBroker) statuses() []domain.BookingStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.BookingStatus, 0, len(m.published))
	for _, ev := range m.published {
		out = append(out, ev.Status)
	}
	return out
}

// --- Mock BookingScheduler ---

type mockScheduler struct {
	mu        sync.Mutex
	scheduled map[string]time.Duration
	// onSchedule runs after the booking is recorded, outside the lock.
	onSchedule func(bookingID string)
}

func (m *mockScheduler) SchedulePendingExpiry(ctx context.Context, bookingID string, after time.Duration) error {
	m.mu.Lock()
	if m.scheduled == nil {
		m.scheduled = make(map[string]time.Duration)
	}
	m.scheduled[bookingID] = after
	hook := m.onSchedule
	m.mu.Unlock()
	if hook != nil {
		hook(bookingID)
	}
	return nil
}

// silentSubscriber never delivers. onSubscribe runs while the subscription
// is being set up, the way a status change can race a real subscribe.
type silentSubscriber struct {
	onSubscribe func(bookingID string)
}

func (s *silentSubscriber) SubscribeBookingStatus(ctx context.Context, bookingID string) (<-chan domain.BookingStatusEvent, func(), error) {
	if s.onSubscribe != nil {
		s.onSubscribe(bookingID)
	}
	return make(chan domain.BookingStatusEvent), func() {}, nil
}
