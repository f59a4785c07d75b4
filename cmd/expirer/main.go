package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/pilartoda/trikeride/internal/adapters/nats"
	"github.com/pilartoda/trikeride/internal/adapters/postgres"
	"github.com/pilartoda/trikeride/internal/core/ports"
	"github.com/pilartoda/trikeride/internal/core/usecases"
	"github.com/pilartoda/trikeride/internal/pkg/config"
	"github.com/pilartoda/trikeride/internal/pkg/logging"
	"github.com/pilartoda/trikeride/internal/pkg/report"
	"github.com/pilartoda/trikeride/internal/workflows"
)

func main() {
	cfg, err := config.Load("trikeride-expirer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)
	if err := report.Setup(cfg.Sentry.DSN, cfg.Sentry.Environment, ""); err != nil {
		slog.Warn("sentry init failed", "error", err)
	}
	defer report.Flush()

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Riders waiting on the change feed learn about the cancellation through NATS.
	var publisher ports.EventPublisher
	nc, err := natsadapter.Connect(cfg.NATS.URL, cfg.Telemetry.ServiceName)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer nc.Close()
		if pub, err := natsadapter.NewPublisher(nc); err != nil {
			slog.Warn("jetstream unavailable", "error", err)
		} else {
			publisher = pub
		}
	}

	bookings := usecases.NewBookingService(usecases.BookingDeps{
		Bookings:  postgres.NewBookingRepo(db),
		Drivers:   postgres.NewDriverRepo(db),
		Publisher: publisher,
	}, usecases.BookingOptions{})

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, workflows.TaskQueue, worker.Options{})

	w.RegisterWorkflow(workflows.PendingBookingExpiryWorkflow)
	w.RegisterActivity(&workflows.ExpiryActivities{Bookings: bookings})

	slog.Info("expiry worker started", "task_queue", workflows.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
