package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Geofence is a named service-area boundary (e.g. Pilar Village).
type Geofence struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Polygon   Polygon   `json:"polygon"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Station is a fixed, admin-curated drop-off point outside the village.
type Station struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	IsActive bool    `json:"is_active"`
}

// Coordinate returns the station position.
func (s Station) Coordinate() Coordinate {
	return Coordinate{Lat: s.Lat, Lng: s.Lng}
}

// TripType classifies a trip by where it ends.
type TripType string

const (
	TripVillage  TripType = "village"
	TripOutbound TripType = "outbound"
)

// Valid reports whether t is a known trip type.
func (t TripType) Valid() bool {
	return t == TripVillage || t == TripOutbound
}

// TripClassification is derived from the drop-off at confirmation time.
type TripClassification struct {
	Type    TripType `json:"trip_type"`
	Station *Station `json:"station,omitempty"`
}

// FareQuote is the price of a trip. It is never stored on its own.
type FareQuote struct {
	Amount     decimal.Decimal `json:"amount"`
	DistanceKm float64         `json:"distance_km"`
	TripType   TripType        `json:"trip_type"`
}

// BookingStatus is the lifecycle state of a booking record.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAccepted  BookingStatus = "accepted"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a ride request persisted by the booking store.
type Booking struct {
	ID            string          `json:"id"`
	PickupLat     float64         `json:"pickup_lat"`
	PickupLng     float64         `json:"pickup_lng"`
	DropoffLat    float64         `json:"dropoff_lat"`
	DropoffLng    float64         `json:"dropoff_lng"`
	StationID     *string         `json:"station_id,omitempty"`
	TripType      TripType        `json:"trip_type"`
	Fare          decimal.Decimal `json:"fare"`
	Status        BookingStatus   `json:"status"`
	CustomerPhone *string         `json:"customer_phone,omitempty"`
	DriverID      *string         `json:"driver_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// BookingStatusEvent is pushed by the change feed whenever a booking row changes.
type BookingStatusEvent struct {
	BookingID string        `json:"booking_id"`
	Status    BookingStatus `json:"status"`
	DriverID  string        `json:"driver_id,omitempty"`
	Time      time.Time     `json:"time"`
}

// DriverStatus is the admin approval state of a driver.
type DriverStatus string

const (
	DriverPending   DriverStatus = "pending"
	DriverApproved  DriverStatus = "approved"
	DriverRejected  DriverStatus = "rejected"
	DriverSuspended DriverStatus = "suspended"
)

// Valid reports whether s is a known driver status.
func (s DriverStatus) Valid() bool {
	switch s {
	case DriverPending, DriverApproved, DriverRejected, DriverSuspended:
		return true
	}
	return false
}

// Driver is a registered tricycle driver.
type Driver struct {
	ID              string       `json:"id"`
	FullName        string       `json:"full_name"`
	MobileNumber    string       `json:"mobile_number"`
	TODAAssociation string       `json:"toda_association"`
	BodyNumber      string       `json:"body_number"`
	Status          DriverStatus `json:"status"`
	IsOnline        bool         `json:"is_online"`
	CreatedAt       time.Time    `json:"created_at"`
}
