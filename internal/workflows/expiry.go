package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// TaskQueue is the task queue served by cmd/expirer.
const TaskQueue = "trikeride-booking-expiry"

// PendingExpiryInput is the input for PendingBookingExpiryWorkflow.
type PendingExpiryInput struct {
	BookingID string
	After     time.Duration
}

// PendingExpiryResult reports what the workflow did.
type PendingExpiryResult struct {
	Expired bool
}

// WorkflowID is the deterministic workflow ID for a booking, so scheduling
// the same booking twice is rejected by the server.
func WorkflowID(bookingID string) string {
	return "booking-expiry-" + bookingID
}

// PendingBookingExpiryWorkflow waits for the acceptance window to pass and
// then cancels the booking if no driver took it.
func PendingBookingExpiryWorkflow(ctx workflow.Context, input PendingExpiryInput) (PendingExpiryResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Waiting for driver acceptance", "bookingID", input.BookingID, "after", input.After)

	if err := workflow.Sleep(ctx, input.After); err != nil {
		return PendingExpiryResult{}, err
	}

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var expired bool
	if err := workflow.ExecuteActivity(ctx, ActivityExpirePendingBooking, input.BookingID).Get(ctx, &expired); err != nil {
		return PendingExpiryResult{}, err
	}

	if expired {
		logger.Info("Pending booking expired", "bookingID", input.BookingID)
	} else {
		logger.Info("Booking already left pending", "bookingID", input.BookingID)
	}
	return PendingExpiryResult{Expired: expired}, nil
}
