package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pilartoda/trikeride/internal/core/domain"
	"github.com/pilartoda/trikeride/internal/pkg/geospatial"
)

// coordBody is the JSON shape of a point picked on the map.
type coordBody struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (b coordBody) coordinate(field string) (domain.Coordinate, error) {
	if b.Lat == nil || b.Lng == nil {
		return domain.Coordinate{}, &domain.ValidationError{Kind: domain.InvalidInput, Field: field, Msg: "lat and lng are required"}
	}
	c := domain.Coordinate{Lat: *b.Lat, Lng: *b.Lng}
	if !c.Valid() {
		return domain.Coordinate{}, &domain.ValidationError{Kind: domain.InvalidCoordinate, Field: field, Msg: "coordinate out of range"}
	}
	return c, nil
}

// queryCoordinate reads a lat/lng pair from the query string. present is
// false when both parameters are absent.
func queryCoordinate(c *fiber.Ctx, latKey, lngKey string) (coord domain.Coordinate, present bool, err error) {
	rawLat, rawLng := c.Query(latKey), c.Query(lngKey)
	if rawLat == "" && rawLng == "" {
		return domain.Coordinate{}, false, nil
	}
	lat, errLat := strconv.ParseFloat(rawLat, 64)
	lng, errLng := strconv.ParseFloat(rawLng, 64)
	if errLat != nil || errLng != nil {
		return domain.Coordinate{}, true, fmt.Errorf("%s and %s must be numbers", latKey, lngKey)
	}
	coord = domain.Coordinate{Lat: lat, Lng: lng}
	if !coord.Valid() {
		return domain.Coordinate{}, true, fmt.Errorf("%s/%s out of range", latKey, lngKey)
	}
	return coord, true, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ListStationsHandler returns the active drop-off stations.
func ListStationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stations, err := deps.Stations.ListActive(c.UserContext())
		if err != nil {
			return handleError(c, err)
		}
		if stations == nil {
			stations = []domain.Station{}
		}
		return c.JSON(fiber.Map{"data": stations})
	}
}

// ActiveGeofenceHandler returns the service boundary with its summary.
func ActiveGeofenceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		g, err := deps.Geofences.Active(c.UserContext())
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(fiber.Map{
			"geofence": g,
			"summary":  geospatial.Summarize(g.Polygon),
		})
	}
}

// CheckPointHandler reports whether a point lies inside the service boundary.
func CheckPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pt, ok, err := queryCoordinate(c, "lat", "lng")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if !ok {
			return errBadRequest(c, "lat and lng are required")
		}
		inside, err := deps.Geofences.Contains(c.UserContext(), pt)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(fiber.Map{
			"inside":      inside,
			"coordinates": geospatial.FormatCoordinates(pt),
		})
	}
}

// FareQuoteHandler prices a trip without opening a session.
func FareQuoteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pickup, ok, err := queryCoordinate(c, "pickup_lat", "pickup_lng")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if !ok {
			return errBadRequest(c, "pickup_lat and pickup_lng are required")
		}

		stationID := strings.TrimSpace(c.Query("station_id"))
		if stationID != "" && !validID(stationID) {
			return errBadRequest(c, "station_id must be a UUID")
		}
		dropoff, ok, err := queryCoordinate(c, "dropoff_lat", "dropoff_lng")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if !ok && stationID == "" {
			return errBadRequest(c, "dropoff_lat/dropoff_lng or station_id is required")
		}

		quote, cls, err := deps.Bookings.Quote(c.UserContext(), pickup, dropoff, stationID)
		if err != nil {
			return handleError(c, err)
		}

		resp := fiber.Map{
			"trip_type":   cls.Type,
			"distance_km": quote.DistanceKm,
			"amount":      quote.Amount,
		}
		if cls.Station != nil {
			resp["station_id"] = cls.Station.ID
		}
		return c.JSON(resp)
	}
}

// GetBookingHandler returns a booking by ID.
func GetBookingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !validID(id) {
			return errNotFound(c, "booking not found")
		}
		b, err := deps.Bookings.GetBooking(c.UserContext(), id)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(b)
	}
}
