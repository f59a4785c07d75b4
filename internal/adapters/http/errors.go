package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/pilartoda/trikeride/internal/core/domain"
	"github.com/pilartoda/trikeride/internal/pkg/report"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, conflict, unprocessable, ...
	Message   string `json:"message"` // Human-readable message
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnauthorized, "unauthorized", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusConflict, "conflict", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "service_unavailable", msg)
}

// errUnprocessable returns a 422 error carrying the kind of a rejected input
// or device failure so clients can pick the retry affordance.
func errUnprocessable(c *fiber.Ctx, kind, msg string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(fiber.StatusUnprocessableEntity).JSON(APIError{
		Status:    fiber.StatusUnprocessableEntity,
		Code:      "unprocessable",
		Message:   msg,
		Kind:      kind,
		RequestID: reqID,
	})
}

// handleError maps a domain error onto the response envelope.
func handleError(c *fiber.Ctx, err error) error {
	var (
		verr *domain.ValidationError
		derr *domain.DeviceLocationError
	)
	switch {
	case errors.As(err, &verr):
		return errUnprocessable(c, string(verr.Kind), verr.Error())
	case errors.As(err, &derr):
		return errUnprocessable(c, string(derr.Kind), derr.Error())
	case errors.Is(err, domain.ErrSessionNotFound), domain.IsNotFound(err):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrUnknownStation):
		return errUnprocessable(c, "unknown_station", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrStatusConflict),
		errors.Is(err, domain.ErrSaveInProgress),
		errors.Is(err, domain.ErrStaleResult):
		return errConflict(c, err.Error())
	}

	LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	report.Error(err, map[string]string{
		"route":      c.Route().Path,
		"request_id": RequestIDFromCtx(c.UserContext()),
	})
	if domain.IsPersistence(err) {
		return errInternal(c, "storage is unavailable, please try again")
	}
	return errInternal(c, "internal error")
}
