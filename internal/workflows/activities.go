package workflows

import (
	"context"
	"fmt"
)

// ActivityExpirePendingBooking is the registered name of ExpiryActivities.ExpirePendingBooking.
const ActivityExpirePendingBooking = "ExpirePendingBooking"

// PendingExpirer cancels a booking that is still pending.
type PendingExpirer interface {
	ExpirePending(ctx context.Context, bookingID string) (bool, error)
}

// ExpiryActivities holds the activity implementations for the expiry workflow.
type ExpiryActivities struct {
	Bookings PendingExpirer
}

// ExpirePendingBooking cancels the booking when it is still pending and
// reports whether it did.
func (a *ExpiryActivities) ExpirePendingBooking(ctx context.Context, bookingID string) (bool, error) {
	expired, err := a.Bookings.ExpirePending(ctx, bookingID)
	if err != nil {
		return false, fmt.Errorf("expire booking %s: %w", bookingID, err)
	}
	return expired, nil
}
