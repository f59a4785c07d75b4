package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/pilartoda/trikeride/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// NewApp creates the Fiber app the routes expect. Immutable is forced on:
// handlers hand c.Params and c.Query values to sessions, repositories and
// websocket goroutines that outlive the request buffer.
func NewApp(cfg fiber.Config) *fiber.App {
	cfg.Immutable = true
	return fiber.New(cfg)
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/stations", withTimeout(ListStationsHandler(deps)))
	v1.Get("/geofence", withTimeout(ActiveGeofenceHandler(deps)))
	v1.Get("/geofence/check", withTimeout(CheckPointHandler(deps)))
	v1.Get("/fare/quote", withTimeout(FareQuoteHandler(deps)))

	// Rider booking flow
	sessions := v1.Group("/sessions")
	sessions.Post("/", withTimeout(StartSessionHandler(deps)))
	sessions.Get("/:id", GetSessionHandler(deps))
	sessions.Delete("/:id", EndSessionHandler(deps))
	sessions.Post("/:id/verify", withTimeout(VerifySessionHandler(deps)))
	sessions.Post("/:id/pickup", SetPickupHandler(deps))
	sessions.Post("/:id/dropoff", SetDropoffHandler(deps))
	sessions.Post("/:id/trip-type", SetTripTypeHandler(deps))
	sessions.Post("/:id/confirm", withTimeout(ConfirmSessionHandler(deps)))
	sessions.Post("/:id/refresh", withTimeout(RefreshSessionHandler(deps)))
	sessions.Post("/:id/cancel", withTimeout(CancelSearchHandler(deps)))
	sessions.Post("/:id/reset", ResetSessionHandler(deps))

	// Driver dashboard
	v1.Post("/drivers", withTimeout(RegisterDriverHandler(deps)))
	v1.Get("/drivers/:id", withTimeout(GetDriverHandler(deps)))
	v1.Post("/drivers/:id/online", withTimeout(SetDriverOnlineHandler(deps)))
	v1.Get("/bookings/pending", withTimeout(PendingBookingsHandler(deps)))
	v1.Get("/bookings/:id", withTimeout(GetBookingHandler(deps)))
	v1.Post("/bookings/:id/accept", withTimeout(AcceptBookingHandler(deps)))
	v1.Post("/bookings/:id/complete", withTimeout(CompleteBookingHandler(deps)))

	// Admin dashboard
	admin := v1.Group("/admin", AdminAuthMiddleware(deps.AdminToken))
	admin.Get("/drivers", withTimeout(ListDriversHandler(deps)))
	admin.Post("/drivers/:id/status", withTimeout(UpdateDriverStatusHandler(deps)))

	editor := admin.Group("/geofence/editor")
	editor.Post("/", withTimeout(OpenEditorHandler(deps)))
	editor.Get("/:sid", GetEditorHandler(deps))
	editor.Delete("/:sid", CloseEditorHandler(deps))
	editor.Post("/:sid/edit", StartEditingHandler(deps))
	editor.Post("/:sid/vertices", AddVertexHandler(deps))
	editor.Put("/:sid/vertices/:idx", MoveVertexHandler(deps))
	editor.Delete("/:sid/vertices/:idx", RemoveVertexHandler(deps))
	editor.Post("/:sid/reset", ResetEditorHandler(deps))
	editor.Post("/:sid/clear", ClearEditorHandler(deps))
	editor.Post("/:sid/cancel", CancelEditorHandler(deps))
	editor.Post("/:sid/save", withTimeout(SaveEditorHandler(deps)))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", WebSocketGuard(deps))
	app.Get("/ws", websocket.New(WebSocketHandler(deps.Events)))
}

func withTimeout(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, requestTimeout)
}
