package http

import (
	"github.com/nats-io/nats.go"

	"github.com/pilartoda/trikeride/internal/adapters/postgres"
	"github.com/pilartoda/trikeride/internal/adapters/valkey"
	"github.com/pilartoda/trikeride/internal/core/ports"
	"github.com/pilartoda/trikeride/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Geofences *usecases.GeofenceService
	Stations  *usecases.StationService
	Bookings  *usecases.BookingService
	Drivers   *usecases.DriverService
	Editors   *usecases.GeofenceEditorService

	// Events feeds the /ws relay; nil disables it.
	Events ports.EventSubscriber

	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache

	// AdminToken guards /v1/admin when non-empty.
	AdminToken string
}
