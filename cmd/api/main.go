package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"go.temporal.io/sdk/client"

	"github.com/pilartoda/trikeride/internal/adapters/http"
	natsadapter "github.com/pilartoda/trikeride/internal/adapters/nats"
	"github.com/pilartoda/trikeride/internal/adapters/postgres"
	"github.com/pilartoda/trikeride/internal/adapters/valkey"
	"github.com/pilartoda/trikeride/internal/core/domain"
	"github.com/pilartoda/trikeride/internal/core/ports"
	"github.com/pilartoda/trikeride/internal/core/usecases"
	"github.com/pilartoda/trikeride/internal/pkg/config"
	"github.com/pilartoda/trikeride/internal/pkg/fare"
	"github.com/pilartoda/trikeride/internal/pkg/location"
	"github.com/pilartoda/trikeride/internal/pkg/logging"
	"github.com/pilartoda/trikeride/internal/pkg/metrics"
	"github.com/pilartoda/trikeride/internal/pkg/report"
	"github.com/pilartoda/trikeride/internal/pkg/telemetry"
	"github.com/pilartoda/trikeride/internal/workflows"
)

func main() {
	cfg, err := config.Load("trikeride-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	if err := report.Setup(cfg.Sentry.DSN, cfg.Sentry.Environment, http.Version); err != nil {
		slog.Warn("sentry init failed", "error", err)
	}
	defer report.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			}
		}
	}()

	// Cache. Interfaces stay nil when a backend is down so services skip it.
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	// NATS
	var (
		natsConn   *nats.Conn
		publisher  ports.EventPublisher
		subscriber *natsadapter.Subscriber
		events     ports.EventSubscriber
	)
	natsConn, err = natsadapter.Connect(cfg.NATS.URL, cfg.Telemetry.ServiceName)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer natsConn.Close()
		pub, err := natsadapter.NewPublisher(natsConn)
		if err != nil {
			slog.Warn("jetstream unavailable, booking events disabled", "error", err)
		} else {
			publisher = pub
		}
		subscriber = natsadapter.NewSubscriber(natsConn)
		defer subscriber.Close()
		events = subscriber
	}

	// Temporal
	var scheduler ports.BookingScheduler
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			slog.Warn("temporal unavailable, pending bookings will not expire", "error", err)
		} else {
			defer tc.Close()
			scheduler = workflows.NewScheduler(tc)
		}
	}

	// Repos
	geofenceRepo := postgres.NewGeofenceRepo(db)
	stationRepo := postgres.NewStationRepo(db)
	bookingRepo := postgres.NewBookingRepo(db)
	driverRepo := postgres.NewDriverRepo(db)

	// Use cases
	geofenceSvc := usecases.NewGeofenceService(geofenceRepo, cache, publisher, cfg.Booking.DefaultGeofenceName)
	stationSvc := usecases.NewStationService(stationRepo, cache)
	driverSvc := usecases.NewDriverService(driverRepo)
	editorSvc := usecases.NewGeofenceEditorService(geofenceSvc)

	locOpts := location.DefaultOptions
	locOpts.Timeout = cfg.Booking.LocationTimeout()
	bookingSvc := usecases.NewBookingService(usecases.BookingDeps{
		Geofences:  geofenceSvc,
		Stations:   stationSvc,
		Bookings:   bookingRepo,
		Drivers:    driverRepo,
		Publisher:  publisher,
		Subscriber: events,
		Scheduler:  scheduler,
	}, usecases.BookingOptions{
		Schedule: fare.Schedule{
			VillageBase:  decimal.NewFromFloat(cfg.Booking.VillageBaseFare),
			OutboundBase: decimal.NewFromFloat(cfg.Booking.OutboundBaseFare),
			PerKm:        decimal.NewFromFloat(cfg.Booking.PerKmRate),
		},
		Location:      locOpts,
		PendingExpiry: cfg.Booking.PendingExpiry(),
	})

	if ttl := cfg.Booking.SessionIdleTTL(); ttl > 0 {
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					bookingSvc.SweepIdle(now, ttl)
					editorSvc.SweepIdle(now, ttl)
				}
			}
		}()
	}

	// Other replicas saving the polygon must not leave this one on a stale copy.
	if subscriber != nil {
		err := subscriber.SubscribeGeofenceUpdated(func(g *domain.Geofence) {
			geofenceSvc.InvalidateCache(context.Background())
			slog.Info("geofence updated", "geofence_id", g.ID, "vertices", len(g.Polygon))
		})
		if err != nil {
			slog.Warn("geofence subscription failed", "error", err)
		}
	}

	deps := &http.Dependencies{
		Geofences:  geofenceSvc,
		Stations:   stationSvc,
		Bookings:   bookingSvc,
		Drivers:    driverSvc,
		Editors:    editorSvc,
		Events:     events,
		NATS:       natsConn,
		DB:         db,
		Cache:      vc,
		AdminToken: cfg.Server.AdminToken,
	}

	// Fiber
	app := http.NewApp(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "TrikeRide API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	bookingSvc.Close()

	slog.Info("server stopped")
}
