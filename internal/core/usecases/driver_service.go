package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pilartoda/trikeride/internal/core/domain"
	"github.com/pilartoda/trikeride/internal/core/ports"
)

var mobileNumberRe = regexp.MustCompile(`^(\+63|0)9\d{9}$`)

// DriverService handles driver registration and admin approval.
type DriverService struct {
	drivers ports.DriverRepository
}

// NewDriverService creates a new DriverService.
func NewDriverService(drivers ports.DriverRepository) *DriverService {
	return &DriverService{drivers: drivers}
}

// Register creates a driver awaiting approval.
func (s *DriverService) Register(ctx context.Context, d *domain.Driver) error {
	d.FullName = strings.TrimSpace(d.FullName)
	d.MobileNumber = strings.ReplaceAll(strings.TrimSpace(d.MobileNumber), " ", "")
	d.TODAAssociation = strings.TrimSpace(d.TODAAssociation)
	d.BodyNumber = strings.TrimSpace(d.BodyNumber)

	switch {
	case d.FullName == "":
		return &domain.ValidationError{Kind: domain.InvalidInput, Field: "full_name", Msg: "is required"}
	case !mobileNumberRe.MatchString(d.MobileNumber):
		return &domain.ValidationError{Kind: domain.InvalidInput, Field: "mobile_number", Msg: "must be a PH mobile number"}
	case d.BodyNumber == "":
		return &domain.ValidationError{Kind: domain.InvalidInput, Field: "body_number", Msg: "is required"}
	}

	d.Status = domain.DriverPending
	d.IsOnline = false
	if err := s.drivers.Create(ctx, d); err != nil {
		return err
	}
	slog.InfoContext(ctx, "driver registered", "driver_id", d.ID, "toda", d.TODAAssociation)
	return nil
}

// Get returns a driver by ID.
func (s *DriverService) Get(ctx context.Context, id string) (*domain.Driver, error) {
	return s.drivers.GetByID(ctx, id)
}

// SetOnline toggles dashboard availability. Only approved drivers may go online.
func (s *DriverService) SetOnline(ctx context.Context, id string, online bool) error {
	if online {
		d, err := s.drivers.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if d.Status != domain.DriverApproved {
			return fmt.Errorf("%w: driver %s is %s", domain.ErrInvalidTransition, id, d.Status)
		}
	}
	return s.drivers.SetOnline(ctx, id, online)
}

// List returns one page of drivers in a status.
func (s *DriverService) List(ctx context.Context, status domain.DriverStatus, offset, limit int) ([]domain.Driver, int, error) {
	if !status.Valid() {
		return nil, 0, &domain.ValidationError{Kind: domain.InvalidInput, Field: "status", Msg: "unknown driver status"}
	}
	return s.drivers.ListByStatus(ctx, status, offset, limit)
}

// UpdateStatus applies an admin decision. Leaving approved forces the driver offline.
func (s *DriverService) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	if !status.Valid() {
		return &domain.ValidationError{Kind: domain.InvalidInput, Field: "status", Msg: "unknown driver status"}
	}
	if err := s.drivers.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	if status != domain.DriverApproved {
		if err := s.drivers.SetOnline(ctx, id, false); err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "driver status updated", "driver_id", id, "status", status)
	return nil
}
