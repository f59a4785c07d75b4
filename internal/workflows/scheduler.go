package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

// Scheduler implements ports.BookingScheduler by starting one expiry
// workflow per booking.
type Scheduler struct {
	client client.Client
}

// NewScheduler creates a new Scheduler.
func NewScheduler(c client.Client) *Scheduler {
	return &Scheduler{client: c}
}

// SchedulePendingExpiry starts PendingBookingExpiryWorkflow for the booking.
// Scheduling an already scheduled booking is not an error.
func (s *Scheduler) SchedulePendingExpiry(ctx context.Context, bookingID string, after time.Duration) error {
	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(bookingID),
		TaskQueue: TaskQueue,
	}
	_, err := s.client.ExecuteWorkflow(ctx, opts, PendingBookingExpiryWorkflow, PendingExpiryInput{
		BookingID: bookingID,
		After:     after,
	})
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("start expiry workflow: %w", err)
	}
	return nil
}
