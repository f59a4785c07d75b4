// Package location acquires the rider's current position from a device source
// and maps device failures onto user-facing error categories.
package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pilartoda/trikeride/internal/core/domain"
)

// Options mirrors the knobs a positioning device accepts.
type Options struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	MaximumAge         time.Duration
}

// DefaultOptions requests a fresh high-accuracy fix within 10 seconds.
var DefaultOptions = Options{
	EnableHighAccuracy: true,
	Timeout:            10 * time.Second,
	MaximumAge:         0,
}

// ErrorCode is the structured failure code reported by a positioning device.
type ErrorCode int

const (
	CodePermissionDenied    ErrorCode = 1
	CodePositionUnavailable ErrorCode = 2
	CodeTimeout             ErrorCode = 3
)

// PositionError is a structured device failure.
type PositionError struct {
	Code    ErrorCode
	Message string
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("position error %d: %s", e.Code, e.Message)
}

// Source is the single device capability: request the current position.
type Source interface {
	CurrentPosition(ctx context.Context, opts Options) (domain.Coordinate, error)
}

const (
	msgPermissionDenied    = "Location permission denied. Please enable location access to book a ride."
	msgPositionUnavailable = "Location information is unavailable. Please check your GPS signal."
	msgTimeout             = "Location request timed out. Please try again."
	msgUnknown             = "An unknown error occurred while getting your location."
	msgFailed              = "Failed to get your location."
)

// Acquire performs one position request bounded by opts.Timeout.
// Failures are always returned as *domain.DeviceLocationError.
// The source is not retried; callers serialize their own retries.
func Acquire(ctx context.Context, src Source, opts Options) (domain.Coordinate, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	type result struct {
		pos domain.Coordinate
		err error
	}
	done := make(chan result, 1)
	go func() {
		pos, err := src.CurrentPosition(ctx, opts)
		done <- result{pos: pos, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return domain.Coordinate{}, Classify(r.err)
		}
		if !r.pos.Valid() {
			return domain.Coordinate{}, &domain.DeviceLocationError{
				Kind:    domain.PositionUnavailable,
				Message: msgPositionUnavailable,
				Err:     fmt.Errorf("out of range fix (%v, %v)", r.pos.Lat, r.pos.Lng),
			}
		}
		return r.pos, nil
	case <-ctx.Done():
		return domain.Coordinate{}, Classify(ctx.Err())
	}
}

// Classify maps any acquisition failure onto a DeviceLocationError.
func Classify(err error) *domain.DeviceLocationError {
	var dle *domain.DeviceLocationError
	if errors.As(err, &dle) {
		return dle
	}

	var pe *PositionError
	if errors.As(err, &pe) {
		switch pe.Code {
		case CodePermissionDenied:
			return &domain.DeviceLocationError{Kind: domain.PermissionDenied, Message: msgPermissionDenied, Err: err}
		case CodePositionUnavailable:
			return &domain.DeviceLocationError{Kind: domain.PositionUnavailable, Message: msgPositionUnavailable, Err: err}
		case CodeTimeout:
			return &domain.DeviceLocationError{Kind: domain.LocationTimeout, Message: msgTimeout, Err: err}
		default:
			return &domain.DeviceLocationError{Kind: domain.LocationUnknown, Message: msgUnknown, Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.DeviceLocationError{Kind: domain.LocationTimeout, Message: msgTimeout, Err: err}
	}
	return &domain.DeviceLocationError{Kind: domain.LocationUnknown, Message: msgFailed, Err: err}
}

// Reported is a Source backed by a fix the client already took on its device.
// A non-zero Code reports the device failure instead.
type Reported struct {
	Position *domain.Coordinate
	Code     ErrorCode
	Message  string
}

// CurrentPosition implements Source.
func (r Reported) CurrentPosition(ctx context.Context, _ Options) (domain.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinate{}, err
	}
	if r.Code != 0 {
		return domain.Coordinate{}, &PositionError{Code: r.Code, Message: r.Message}
	}
	if r.Position == nil {
		return domain.Coordinate{}, &PositionError{Code: CodePositionUnavailable, Message: "no fix reported"}
	}
	return *r.Position, nil
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, opts Options) (domain.Coordinate, error)

// CurrentPosition implements Source.
func (f SourceFunc) CurrentPosition(ctx context.Context, opts Options) (domain.Coordinate, error) {
	return f(ctx, opts)
}
