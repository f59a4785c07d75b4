package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case path == "/v1/stations":
			ttl = "public, max-age=300" // Admin-curated, changes rarely

		case path == "/v1/geofence" || path == "/v1/geofence/check":
			ttl = "public, max-age=60" // Editor saves must show up quickly

		case path == "/v1/fare/quote":
			ttl = "public, max-age=60"

		case strings.HasPrefix(path, "/v1/sessions"),
			strings.HasPrefix(path, "/v1/bookings"),
			strings.HasPrefix(path, "/v1/drivers"),
			strings.HasPrefix(path, "/v1/admin"):
			ttl = "no-store" // Per-user, changes on every step

		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
