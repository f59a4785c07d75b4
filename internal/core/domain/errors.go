package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an operation is not legal in the current state.
	ErrInvalidTransition = errors.New("operation not allowed in current state")
	// ErrStaleResult marks an async completion that belongs to a superseded session.
	ErrStaleResult = errors.New("result belongs to a superseded session")
	// ErrSaveInProgress is returned for edits attempted while a save is outstanding.
	ErrSaveInProgress = errors.New("save in progress")
	// ErrSessionNotFound is returned for unknown or closed session identifiers.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnknownStation is returned when a station identifier is not in the active list.
	ErrUnknownStation = errors.New("unknown station")
	// ErrStatusConflict is returned when a conditional status update loses the race.
	ErrStatusConflict = errors.New("status changed concurrently")
)

// DeviceLocationKind categorises position acquisition failures.
type DeviceLocationKind string

const (
	PermissionDenied    DeviceLocationKind = "permission_denied"
	PositionUnavailable DeviceLocationKind = "position_unavailable"
	LocationTimeout     DeviceLocationKind = "timeout"
	LocationUnknown     DeviceLocationKind = "unknown"
)

// DeviceLocationError carries a user-presentable message for a failed position request.
type DeviceLocationError struct {
	Kind    DeviceLocationKind
	Message string
	Err     error
}

func (e *DeviceLocationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "failed to get location"
}

func (e *DeviceLocationError) Unwrap() error { return e.Err }

// ValidationKind categorises rejected user input.
type ValidationKind string

const (
	InsufficientVertices ValidationKind = "insufficient_vertices"
	OutsideGeofence      ValidationKind = "outside_geofence"
	InvalidCoordinate    ValidationKind = "invalid_coordinate"
	InvalidInput         ValidationKind = "invalid_input"
)

// ValidationError is resolved locally and shown to the user with a retry affordance.
type ValidationError struct {
	Kind  ValidationKind
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Msg != "" && e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Field != "":
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return string(e.Kind)
}

// PersistenceError wraps an opaque failure from an external store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return e.Op + ": persistence failure"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotFoundError is returned by lookups that matched no record.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// ValidationKindOf returns the kind of a wrapped ValidationError, or "".
func ValidationKindOf(err error) ValidationKind {
	var target *ValidationError
	if errors.As(err, &target) {
		return target.Kind
	}
	return ""
}

func IsDeviceLocation(err error) bool {
	var target *DeviceLocationError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
