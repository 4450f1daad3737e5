package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/voltroute/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

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
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics"
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
	app.Use(DeprecationMiddleware(deprecatedRoutes))

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	// Route planning. Optimization waits on the backend, so it gets the timeout.
	v1.Post("/trips/optimize", timeout.NewWithContext(OptimizeTripHandler(deps), requestTimeout))
	v1.Get("/route", GetRouteHandler(deps))
	v1.Get("/sustainability", SustainabilityHandler(deps))

	// Battery notifications
	v1.Get("/notifications", ListNotificationsHandler(deps))
	v1.Delete("/notifications/:kind", DismissNotificationHandler(deps))

	// Nearest reachable station
	v1.Get("/reachability", GetReachabilityHandler(deps))
	v1.Put("/reachability/inputs", SetReachabilityInputsHandler(deps))
	v1.Post("/reachability", timeout.NewWithContext(ResolveReachabilityHandler(deps), requestTimeout))
	v1.Get("/best-station", timeout.NewWithContext(BestStationHandler(deps), requestTimeout))

	// Station catalogue
	v1.Get("/stations", timeout.NewWithContext(ListStationsHandler(deps), requestTimeout))
	v1.Get("/stations/status", StationsStatusHandler(deps))

	// EV profiles
	v1.Get("/profiles/:user_id", timeout.NewWithContext(GetProfileHandler(deps), requestTimeout))
	v1.Put("/profiles/:user_id", timeout.NewWithContext(UpdateProfileHandler(deps), requestTimeout))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/map", websocket.New(MapSocketHandler(deps.Map)))
	app.Get("/ws/events", websocket.New(EventsSocketHandler(deps.NATS)))
}
