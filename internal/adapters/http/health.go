package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

var (
	errDisconnected = errors.New("disconnected")
	errNoBoundary   = errors.New("active geofence has fewer than 3 vertices")
)

// Version is stamped at build time with -ldflags "-X ...http.Version=...".
var Version = "dev"

// HealthHandler is the liveness probe.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": Version,
		})
	}
}

// readinessCheck probes one backend. Optional backends only fail readiness
// when they are configured and broken.
type readinessCheck struct {
	name       string
	configured bool
	required   bool
	probe      func(ctx context.Context) error
}

func readinessChecks(deps *Dependencies) []readinessCheck {
	return []readinessCheck{
		{
			name:       "database",
			configured: deps.DB != nil,
			required:   true,
			probe:      func(ctx context.Context) error { return deps.DB.Ping(ctx) },
		},
		{
			name:       "nats",
			configured: deps.NATS != nil,
			probe: func(context.Context) error {
				if !deps.NATS.IsConnected() {
					return errDisconnected
				}
				return nil
			},
		},
		{
			name:       "cache",
			configured: deps.Cache != nil,
			probe:      func(ctx context.Context) error { return deps.Cache.Ping(ctx) },
		},
		{
			// Without a usable boundary every verification is rejected.
			name:       "geofence",
			configured: deps.DB != nil && deps.Geofences != nil,
			probe: func(ctx context.Context) error {
				g, err := deps.Geofences.Active(ctx)
				if err != nil {
					return err
				}
				if !g.Polygon.Usable() {
					return errNoBoundary
				}
				return nil
			},
		},
	}
}

// ReadyHandler checks the database, NATS, the cache and the active geofence.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		ready := true
		for _, chk := range readinessChecks(deps) {
			if !chk.configured {
				checks[chk.name] = "not configured"
				ready = ready && !chk.required
				continue
			}
			if err := chk.probe(ctx); err != nil {
				checks[chk.name] = "error: " + err.Error()
				ready = false
				continue
			}
			checks[chk.name] = "ok"
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
