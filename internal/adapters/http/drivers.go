package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

type registerDriverBody struct {
	FullName        string `json:"full_name"`
	MobileNumber    string `json:"mobile_number"`
	TODAAssociation string `json:"toda_association"`
	BodyNumber      string `json:"body_number"`
}

type onlineBody struct {
	Online bool `json:"online"`
}

type driverActionBody struct {
	DriverID string `json:"driver_id"`
}

// RegisterDriverHandler signs a driver up for admin approval.
func RegisterDriverHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body registerDriverBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		d := &domain.Driver{
			FullName:        body.FullName,
			MobileNumber:    body.MobileNumber,
			TODAAssociation: body.TODAAssociation,
			BodyNumber:      body.BodyNumber,
		}
		if err := deps.Drivers.Register(c.UserContext(), d); err != nil {
			return handleError(c, err)
		}
		c.Location("/v1/drivers/" + d.ID)
		return c.Status(fiber.StatusCreated).JSON(d)
	}
}

// GetDriverHandler returns a driver profile.
func GetDriverHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !validID(id) {
			return errNotFound(c, "driver not found")
		}
		d, err := deps.Drivers.Get(c.UserContext(), id)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(d)
	}
}

// SetDriverOnlineHandler toggles dashboard availability.
func SetDriverOnlineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !validID(id) {
			return errNotFound(c, "driver not found")
		}
		var body onlineBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Drivers.SetOnline(c.UserContext(), id, body.Online); err != nil {
			return handleError(c, err)
		}
		return c.JSON(fiber.Map{"id": id, "is_online": body.Online})
	}
}

// PendingBookingsHandler lists bookings waiting for a driver.
func PendingBookingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bookings, err := deps.Bookings.ListPending(c.UserContext(), pageFromQuery(c).Limit)
		if err != nil {
			return handleError(c, err)
		}
		if bookings == nil {
			bookings = []domain.Booking{}
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(fiber.Map{"data": bookings})
	}
}

// AcceptBookingHandler assigns a pending booking to the calling driver.
// Losing the race to another driver yields 409.
func AcceptBookingHandler(deps *Dependencies) fiber.Handler {
	return bookingAction(deps, func(c *fiber.Ctx, bookingID, driverID string) (*domain.Booking, error) {
		return deps.Bookings.Accept(c.UserContext(), bookingID, driverID)
	})
}

// CompleteBookingHandler finishes an accepted trip.
func CompleteBookingHandler(deps *Dependencies) fiber.Handler {
	return bookingAction(deps, func(c *fiber.Ctx, bookingID, driverID string) (*domain.Booking, error) {
		return deps.Bookings.Complete(c.UserContext(), bookingID, driverID)
	})
}

func bookingAction(deps *Dependencies, do func(c *fiber.Ctx, bookingID, driverID string) (*domain.Booking, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bookingID := c.Params("id")
		if !validID(bookingID) {
			return errNotFound(c, "booking not found")
		}
		var body driverActionBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		driverID := strings.TrimSpace(body.DriverID)
		if !validID(driverID) {
			return errBadRequest(c, "driver_id must be a UUID")
		}
		logWith(c, "booking_id", bookingID, "driver_id", driverID)
		b, err := do(c, bookingID, driverID)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(b)
	}
}
