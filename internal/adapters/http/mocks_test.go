package http_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

const (
	geofenceID = "6a0f7f3e-5d1c-4c61-9a57-0e3f0d2b9c11"
	stationS1  = "1b7d3c52-8f0e-4a7b-b5d3-5f2e8c4a6d01"
	stationS2  = "2c8e4d63-9a1f-4b8c-86e4-6a3f9d5b7e02"
)

var pilarVillage = domain.Polygon{
	{Lat: 14.4325, Lng: 120.9835},
	{Lat: 14.4330, Lng: 120.9925},
	{Lat: 14.4240, Lng: 120.9950},
	{Lat: 14.4190, Lng: 120.9890},
	{Lat: 14.4215, Lng: 120.9820},
}

var testStations = []domain.Station{
	{ID: stationS1, Name: "Zapote Terminal", Lat: 14.40, Lng: 120.95, IsActive: true},
	{ID: stationS2, Name: "Village Chapel", Lat: 14.428, Lng: 120.989, IsActive: true},
}

// --- Mock GeofenceRepository ---

type mockGeofenceRepo struct {
	mu      sync.Mutex
	polygon domain.Polygon
	saves   int
}

func newMockGeofenceRepo() *mockGeofenceRepo {
	return &mockGeofenceRepo{polygon: pilarVillage.Clone()}
}

func (m *mockGeofenceRepo) geofence() *domain.Geofence {
	return &domain.Geofence{ID: geofenceID, Name: "Pilar Village", Polygon: m.polygon.Clone(), IsActive: true}
}

func (m *mockGeofenceRepo) GetActive(ctx context.Context) (*domain.Geofence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.geofence(), nil
}

func (m *mockGeofenceRepo) GetByName(ctx context.Context, name string) (*domain.Geofence, error) {
	return m.GetActive(ctx)
}

func (m *mockGeofenceRepo) GetByID(ctx context.Context, id string) (*domain.Geofence, error) {
	if id != geofenceID {
		return nil, &domain.NotFoundError{Resource: "geofence", ID: id}
	}
	return m.GetActive(ctx)
}

func (m *mockGeofenceRepo) ReplacePolygon(ctx context.Context, id string, polygon domain.Polygon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polygon = polygon.Clone()
	m.saves++
	return nil
}

// --- Mock StationRepository ---

type mockStationRepo struct{}

func (mockStationRepo) ListActive(ctx context.Context) ([]domain.Station, error) {
	return append([]domain.Station(nil), testStations...), nil
}

func (mockStationRepo) GetByID(ctx context.Context, id string) (*domain.Station, error) {
	for _, st := range testStations {
		if st.ID == id {
			s := st
			return &s, nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "station", ID: id}
}

// --- Mock BookingRepository ---

type mockBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]domain.Booking
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{bookings: make(map[string]domain.Booking)}
}

func (m *mockBookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	m.bookings[b.ID] = *b
	return nil
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "booking", ID: id}
	}
	return &b, nil
}

func (m *mockBookingRepo) ListByStatus(ctx context.Context, status domain.BookingStatus, limit int) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.Status == status {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
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
	b.UpdatedAt = time.Now().UTC()
	m.bookings[id] = b
	return &b, nil
}

// --- Mock DriverRepository ---

type mockDriverRepo struct {
	mu      sync.Mutex
	drivers map[string]domain.Driver
}

func newMockDriverRepo() *mockDriverRepo {
	return &mockDriverRepo{drivers: make(map[string]domain.Driver)}
}

func (m *mockDriverRepo) add(d domain.Driver) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	m.drivers[d.ID] = d
	return d.ID
}

func (m *mockDriverRepo) Create(ctx context.Context, d *domain.Driver) error {
	d.ID = uuid.NewString()
	d.CreatedAt = time.Now().UTC()
	m.add(*d)
	return nil
}

func (m *mockDriverRepo) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "driver", ID: id}
	}
	return &d, nil
}

func (m *mockDriverRepo) ListByStatus(ctx context.Context, status domain.DriverStatus, offset, limit int) ([]domain.Driver, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Driver
	for _, d := range m.drivers {
		if d.Status == status {
			all = append(all, d)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].FullName < all[j].FullName })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockDriverRepo) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return &domain.NotFoundError{Resource: "driver", ID: id}
	}
	d.Status = status
	m.drivers[id] = d
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
	m.drivers[id] = d
	return nil
}
