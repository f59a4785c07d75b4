package usecases

import (
	"context"
	"fmt"
	"sync"

	"github.com/pilartoda/trikeride/internal/core/domain"
	"github.com/pilartoda/trikeride/internal/pkg/fare"
	"github.com/pilartoda/trikeride/internal/pkg/geospatial"
	"github.com/pilartoda/trikeride/internal/pkg/location"
)

// FlowState is a step of the rider booking flow.
type FlowState string

const (
	FlowIdle             FlowState = "idle"
	FlowAwaitingPosition FlowState = "awaiting_position"
	FlowVerified         FlowState = "verified"
	FlowRejected         FlowState = "rejected"
	FlowSelectingPickup  FlowState = "selecting_pickup"
	FlowSelectingDropoff FlowState = "selecting_dropoff"
	FlowConfirming       FlowState = "confirming"
	FlowSearching        FlowState = "searching"
	FlowMatched          FlowState = "matched"
	FlowComplete         FlowState = "complete"
	FlowCancelled        FlowState = "cancelled"
)

// Terminal reports whether no further status event can move the flow.
func (s FlowState) Terminal() bool {
	return s == FlowComplete || s == FlowCancelled
}

// RejectReason tells a device failure apart from a fix outside the boundary.
type RejectReason string

const (
	RejectDeviceError     RejectReason = "device-error"
	RejectOutsideBoundary RejectReason = "outside-boundary"
)

// BookingCreator is the booking store's create operation.
type BookingCreator interface {
	Create(ctx context.Context, b *domain.Booking) error
}

// DriverReader fetches driver details once a booking is accepted.
type DriverReader interface {
	GetByID(ctx context.Context, id string) (*domain.Driver, error)
}

// FlowSnapshot is a read-only view of a BookingFlow for rendering.
type FlowSnapshot struct {
	ID           string             `json:"id"`
	State        FlowState          `json:"state"`
	RejectReason RejectReason       `json:"reject_reason,omitempty"`
	Error        string             `json:"error,omitempty"`
	Position     *domain.Coordinate `json:"position,omitempty"`
	Pickup       *domain.Coordinate `json:"pickup,omitempty"`
	Dropoff      *domain.Coordinate `json:"dropoff,omitempty"`
	TripType     domain.TripType    `json:"trip_type,omitempty"`
	Station      *domain.Station    `json:"station,omitempty"`
	Fare         *domain.FareQuote  `json:"fare,omitempty"`
	BookingID    string             `json:"booking_id,omitempty"`
	Driver       *domain.Driver     `json:"driver,omitempty"`
}

// BookingFlow drives one rider from the location gate to trip completion.
//
// Every asynchronous completion is tagged with the epoch it was started in;
// Reset bumps the epoch so results from an abandoned attempt are dropped.
type BookingFlow struct {
	mu sync.Mutex

	id       string
	geofence domain.Polygon
	stations map[string]domain.Station
	schedule fare.Schedule

	state    FlowState
	epoch    uint64
	inFlight bool
	reject   RejectReason
	lastErr  error

	position *domain.Coordinate
	pickup   *domain.Coordinate
	dropoff  *domain.Coordinate
	tripType domain.TripType
	station  *domain.Station
	quote    *domain.FareQuote

	bookingID string
	driver    *domain.Driver
}

// NewBookingFlow creates an idle flow over a snapshot of the geofence and stations.
func NewBookingFlow(id string, geofence domain.Polygon, stations []domain.Station, schedule fare.Schedule) *BookingFlow {
	byID := make(map[string]domain.Station, len(stations))
	for _, st := range stations {
		byID[st.ID] = st
	}
	return &BookingFlow{
		id:       id,
		geofence: geofence.Clone(),
		stations: byID,
		schedule: schedule,
		state:    FlowIdle,
	}
}

// ID returns the session identifier.
func (f *BookingFlow) ID() string { return f.id }

// State returns the current state.
func (f *BookingFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Snapshot returns copies of the flow state.
func (f *BookingFlow) Snapshot() FlowSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := FlowSnapshot{
		ID:           f.id,
		State:        f.state,
		RejectReason: f.reject,
		Position:     copyCoord(f.position),
		Pickup:       copyCoord(f.pickup),
		Dropoff:      copyCoord(f.dropoff),
		TripType:     f.tripType,
		BookingID:    f.bookingID,
	}
	if f.lastErr != nil {
		s.Error = f.lastErr.Error()
	}
	if f.station != nil {
		st := *f.station
		s.Station = &st
	}
	if f.quote != nil {
		q := *f.quote
		s.Fare = &q
	}
	if f.driver != nil {
		d := *f.driver
		s.Driver = &d
	}
	return s
}

// BeginVerification moves to AwaitingPosition and returns the token the
// position result must carry.
func (f *BookingFlow) BeginVerification() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case FlowIdle, FlowRejected, FlowVerified:
	default:
		return 0, f.invalid("verify")
	}
	f.epoch++
	f.state = FlowAwaitingPosition
	f.reject = ""
	f.lastErr = nil
	f.position = nil
	return f.epoch, nil
}

// CompleteVerification applies a position result. A result carrying a stale
// token returns domain.ErrStaleResult and changes nothing.
func (f *BookingFlow) CompleteVerification(token uint64, pos domain.Coordinate, acquireErr error) (FlowState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if token != f.epoch || f.state != FlowAwaitingPosition {
		return f.state, domain.ErrStaleResult
	}

	if acquireErr != nil {
		f.state = FlowRejected
		f.reject = RejectDeviceError
		f.lastErr = location.Classify(acquireErr)
		return f.state, f.lastErr
	}
	if !geospatial.PointInPolygon(pos, f.geofence) {
		f.state = FlowRejected
		f.reject = RejectOutsideBoundary
		f.lastErr = &domain.ValidationError{
			Kind: domain.OutsideGeofence,
			Msg:  "You must be inside the village to book a ride.",
		}
		return f.state, f.lastErr
	}

	p := pos
	f.position = &p
	f.state = FlowVerified
	return f.state, nil
}

// Verify runs the entry gate: acquire one position from src and test it
// against the geofence.
func (f *BookingFlow) Verify(ctx context.Context, src location.Source, opts location.Options) (FlowState, error) {
	token, err := f.BeginVerification()
	if err != nil {
		return f.State(), err
	}
	pos, acquireErr := location.Acquire(ctx, src, opts)
	return f.CompleteVerification(token, pos, acquireErr)
}

// BeginPickup opens pickup selection after a successful gate.
func (f *BookingFlow) BeginPickup() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FlowVerified && f.state != FlowSelectingPickup {
		return f.invalid("select pickup")
	}
	f.state = FlowSelectingPickup
	return nil
}

// SetPickup accepts a pickup only inside the geofence. A rejected first pickup
// leaves the flow in SelectingPickup; a rejected change keeps the previous
// pickup and state, so the trip already chosen stays confirmable.
func (f *BookingFlow) SetPickup(c domain.Coordinate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case FlowVerified, FlowSelectingPickup, FlowSelectingDropoff, FlowConfirming:
	default:
		return f.invalid("set pickup")
	}
	if f.inFlight {
		return f.invalid("set pickup")
	}
	if !c.Valid() {
		return invalidCoordinate("pickup")
	}
	if !geospatial.PointInPolygon(c, f.geofence) {
		if f.pickup == nil {
			f.state = FlowSelectingPickup
		}
		f.lastErr = &domain.ValidationError{
			Kind:  domain.OutsideGeofence,
			Field: "pickup",
			Msg:   "Pickup must be inside the village boundary.",
		}
		return f.lastErr
	}

	p := c
	f.pickup = &p
	f.lastErr = nil
	if f.dropoff != nil {
		f.state = FlowConfirming
	} else {
		f.state = FlowSelectingDropoff
	}
	f.recomputeFare()
	return nil
}

// SetDropoff places a free drop-off and reclassifies the trip.
func (f *BookingFlow) SetDropoff(c domain.Coordinate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.canChooseDropoff(); err != nil {
		return err
	}
	if !c.Valid() {
		return invalidCoordinate("dropoff")
	}
	f.applyDropoff(c, ClassifyTrip(c, nil, f.geofence))
	return nil
}

// SelectStation uses a known station as the drop-off; the trip is outbound
// whatever the geofence says.
func (f *BookingFlow) SelectStation(stationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.canChooseDropoff(); err != nil {
		return err
	}
	st, ok := f.stations[stationID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownStation, stationID)
	}
	f.applyDropoff(st.Coordinate(), ClassifyTrip(st.Coordinate(), &st, f.geofence))
	return nil
}

// SetTripType overrides the trip type until the next drop-off change.
func (f *BookingFlow) SetTripType(t domain.TripType) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.canChooseDropoff(); err != nil {
		return err
	}
	if !t.Valid() {
		return &domain.ValidationError{Kind: domain.InvalidInput, Field: "trip_type", Msg: "must be village or outbound"}
	}
	f.tripType = t
	f.recomputeFare()
	return nil
}

// Confirm creates the pending booking and moves to Searching. A store failure
// leaves the flow in Confirming.
func (f *BookingFlow) Confirm(ctx context.Context, creator BookingCreator, customerPhone string) (*domain.Booking, error) {
	f.mu.Lock()
	if f.state != FlowConfirming || f.inFlight || f.pickup == nil || f.dropoff == nil || f.quote == nil {
		err := f.invalid("confirm")
		f.mu.Unlock()
		return nil, err
	}
	b := &domain.Booking{
		PickupLat:  f.pickup.Lat,
		PickupLng:  f.pickup.Lng,
		DropoffLat: f.dropoff.Lat,
		DropoffLng: f.dropoff.Lng,
		TripType:   f.tripType,
		Fare:       f.quote.Amount,
		Status:     domain.BookingPending,
	}
	if f.station != nil {
		id := f.station.ID
		b.StationID = &id
	}
	if customerPhone != "" {
		phone := customerPhone
		b.CustomerPhone = &phone
	}
	epoch := f.epoch
	f.inFlight = true
	f.mu.Unlock()

	err := creator.Create(ctx, b)

	f.mu.Lock()
	defer f.mu.Unlock()
	if epoch != f.epoch {
		return nil, domain.ErrStaleResult
	}
	f.inFlight = false
	if err != nil {
		f.lastErr = &domain.PersistenceError{Op: "create booking", Err: err}
		return nil, f.lastErr
	}
	f.lastErr = nil
	f.bookingID = b.ID
	f.state = FlowSearching
	return b, nil
}

// Apply feeds one change-feed event into the flow. Events for other bookings
// and events arriving in a terminal state are ignored; re-applying the state
// the flow is already in is a no-op.
func (f *BookingFlow) Apply(ctx context.Context, ev domain.BookingStatusEvent, drivers DriverReader) error {
	f.mu.Lock()
	if f.bookingID == "" || ev.BookingID != f.bookingID {
		f.mu.Unlock()
		return nil
	}
	if f.state != FlowSearching && f.state != FlowMatched {
		f.mu.Unlock()
		return nil
	}

	switch ev.Status {
	case domain.BookingCompleted:
		f.state = FlowComplete
		f.mu.Unlock()
		return nil
	case domain.BookingCancelled:
		f.state = FlowCancelled
		f.mu.Unlock()
		return nil
	case domain.BookingAccepted:
		if ev.DriverID == "" {
			f.mu.Unlock()
			return nil
		}
		if f.state == FlowMatched && f.driver != nil && f.driver.ID == ev.DriverID {
			f.mu.Unlock()
			return nil
		}
	default:
		f.mu.Unlock()
		return nil
	}
	epoch, bookingID := f.epoch, f.bookingID
	f.mu.Unlock()

	driver, err := drivers.GetByID(ctx, ev.DriverID)

	f.mu.Lock()
	defer f.mu.Unlock()
	if epoch != f.epoch || bookingID != f.bookingID {
		return domain.ErrStaleResult
	}
	if f.state.Terminal() {
		return nil
	}
	if err != nil {
		f.lastErr = &domain.PersistenceError{Op: "fetch driver", Err: err}
		return f.lastErr
	}
	f.driver = driver
	f.lastErr = nil
	f.state = FlowMatched
	return nil
}

// BookingID returns the booking created by Confirm, if any.
func (f *BookingFlow) BookingID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookingID
}

// Reset abandons the attempt and returns to Idle. Outstanding async results
// become stale.
func (f *BookingFlow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.epoch++
	f.state = FlowIdle
	f.inFlight = false
	f.reject = ""
	f.lastErr = nil
	f.position = nil
	f.pickup = nil
	f.dropoff = nil
	f.tripType = ""
	f.station = nil
	f.quote = nil
	f.bookingID = ""
	f.driver = nil
}

func (f *BookingFlow) canChooseDropoff() error {
	if f.state != FlowSelectingDropoff && f.state != FlowConfirming {
		return f.invalid("choose drop-off")
	}
	if f.inFlight {
		return f.invalid("choose drop-off")
	}
	return nil
}

func (f *BookingFlow) applyDropoff(c domain.Coordinate, cls domain.TripClassification) {
	d := c
	f.dropoff = &d
	f.tripType = cls.Type
	f.station = cls.Station
	f.lastErr = nil
	f.state = FlowConfirming
	f.recomputeFare()
}

func (f *BookingFlow) recomputeFare() {
	if f.pickup == nil || f.dropoff == nil || f.tripType == "" {
		f.quote = nil
		return
	}
	q := QuoteTrip(f.schedule, f.tripType, *f.pickup, *f.dropoff)
	f.quote = &q
}

func (f *BookingFlow) invalid(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", domain.ErrInvalidTransition, op, f.state)
}

func copyCoord(c *domain.Coordinate) *domain.Coordinate {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}
