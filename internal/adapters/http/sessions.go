package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pilartoda/trikeride/internal/core/domain"
	"github.com/pilartoda/trikeride/internal/core/usecases"
	"github.com/pilartoda/trikeride/internal/pkg/location"
)

// verifyBody carries the fix the rider's device reported, or the device
// error code when the position request failed (1 denied, 2 unavailable, 3 timeout).
type verifyBody struct {
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	ErrorCode int      `json:"error_code"`
	Message   string   `json:"message"`
}

type dropoffBody struct {
	coordBody
	StationID string `json:"station_id"`
}

type tripTypeBody struct {
	TripType domain.TripType `json:"trip_type"`
}

type confirmBody struct {
	CustomerPhone string `json:"customer_phone"`
}

func sessionFlow(c *fiber.Ctx, deps *Dependencies) (*usecases.BookingFlow, error) {
	id := c.Params("id")
	logWith(c, "session_id", id)
	return deps.Bookings.Session(id)
}

// StartSessionHandler opens a booking flow over the current geofence and stations.
func StartSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		flow, err := deps.Bookings.StartSession(c.UserContext())
		if err != nil {
			return handleError(c, err)
		}
		c.Location("/v1/sessions/" + flow.ID())
		return c.Status(fiber.StatusCreated).JSON(flow.Snapshot())
	}
}

// GetSessionHandler renders the current flow state.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		flow, err := sessionFlow(c, deps)
		if err != nil {
			return handleError(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(flow.Snapshot())
	}
}

// VerifySessionHandler runs the location gate. A rejected fix is a normal
// outcome and is rendered from the snapshot, not as an error.
func VerifySessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body verifyBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		src := location.Reported{Code: location.ErrorCode(body.ErrorCode), Message: body.Message}
		if body.ErrorCode == 0 {
			if body.Lat == nil || body.Lng == nil {
				return errBadRequest(c, "lat and lng or error_code are required")
			}
			src.Position = &domain.Coordinate{Lat: *body.Lat, Lng: *body.Lng}
		}

		state, err := deps.Bookings.Verify(c.UserContext(), c.Params("id"), src)
		if err != nil && state != usecases.FlowRejected {
			return handleError(c, err)
		}
		flow, err := sessionFlow(c, deps)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(flow.Snapshot())
	}
}

// SetPickupHandler places the pickup pin.
func SetPickupHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body coordBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		pt, err := body.coordinate("pickup")
		if err != nil {
			return handleError(c, err)
		}
		if err := deps.Bookings.SetPickup(c.Params("id"), pt); err != nil {
			return handleError(c, err)
		}
		return renderSession(c, deps)
	}
}

// SetDropoffHandler places a free drop-off or selects a station.
func SetDropoffHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body dropoffBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		flow, err := sessionFlow(c, deps)
		if err != nil {
			return handleError(c, err)
		}

		if id := strings.TrimSpace(body.StationID); id != "" {
			err = flow.SelectStation(id)
		} else {
			var pt domain.Coordinate
			if pt, err = body.coordinate("dropoff"); err == nil {
				err = flow.SetDropoff(pt)
			}
		}
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(flow.Snapshot())
	}
}

// SetTripTypeHandler overrides the derived trip type.
func SetTripTypeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body tripTypeBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		flow, err := sessionFlow(c, deps)
		if err != nil {
			return handleError(c, err)
		}
		if err := flow.SetTripType(body.TripType); err != nil {
			return handleError(c, err)
		}
		return c.JSON(flow.Snapshot())
	}
}

// ConfirmSessionHandler creates the pending booking.
func ConfirmSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body confirmBody
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}
		phone := strings.ReplaceAll(strings.TrimSpace(body.CustomerPhone), " ", "")
		if _, err := deps.Bookings.Confirm(c.UserContext(), c.Params("id"), phone); err != nil {
			return handleError(c, err)
		}
		return renderSession(c, deps)
	}
}

// RefreshSessionHandler re-reads the booking for clients without a live feed.
func RefreshSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Bookings.Refresh(c.UserContext(), c.Params("id"))
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(snap)
	}
}

// CancelSearchHandler withdraws a booking nobody has accepted yet.
func CancelSearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := deps.Bookings.CancelSearch(c.UserContext(), c.Params("id")); err != nil {
			return handleError(c, err)
		}
		return renderSession(c, deps)
	}
}

// ResetSessionHandler abandons the current attempt and returns to Idle.
func ResetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Bookings.Reset(c.Params("id")); err != nil {
			return handleError(c, err)
		}
		return renderSession(c, deps)
	}
}

// EndSessionHandler closes a session.
func EndSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Bookings.EndSession(c.Params("id")); err != nil {
			return handleError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func renderSession(c *fiber.Ctx, deps *Dependencies) error {
	flow, err := sessionFlow(c, deps)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(flow.Snapshot())
}
