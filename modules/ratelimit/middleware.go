package ratelimit

import (
	"fmt"
	"strconv"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"

	"github.com/example/collab-template-demo/domain/ratelimit"
)

// KeyFunc extracts the rate limit key from a request.
type KeyFunc func(c *fiber.Ctx) string

// ByIP keys requests by client address.
func ByIP(c *fiber.Ctx) string {
	return c.IP()
}

// Middleware returns a Fiber handler enforcing limiter per key.
// Limiter failures let the request through and are logged.
func Middleware(limiter ratelimit.Limiter, config ratelimit.Config, keyFn KeyFunc, logger types.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := keyFn(c)
		if key == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "unable to determine client address",
			})
		}

		result, err := limiter.Allow(c.UserContext(), key)
		if err != nil {
			logger.Warn("Rate limiter unavailable, allowing request", "key", key, "error", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			logger.Warn("Rate limit exceeded", "key", key, "path", c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "too many requests",
				"message":     fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfter),
				"retry_after": retryAfter,
			})
		}

		return c.Next()
	}
}
