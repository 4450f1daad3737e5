package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses that did not set one.
// Live session state is never cached; the station catalogue changes rarely.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
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
			ttl = "public, max-age=600" // matches the catalogue cache TTL

		case path == "/v1/best-station":
			ttl = "public, max-age=60"

		case strings.HasPrefix(path, "/v1/profiles/"):
			ttl = "private, max-age=0"

		case path == "/v1/route", path == "/v1/sustainability",
			path == "/v1/notifications", path == "/v1/reachability",
			path == "/v1/stations/status":
			ttl = "no-store"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "no-cache"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
