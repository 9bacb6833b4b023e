package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"mailtriage/pkg/apperr"
	"mailtriage/pkg/ratelimit"
)

// RateLimit rejects requests above ratePerSecond with 429.
func RateLimit(ratePerSecond int) fiber.Handler {
	limiter := ratelimit.NewLimiter(ratePerSecond, time.Second)
	return func(c *fiber.Ctx) error {
		if !limiter.Allow() {
			return apperr.New("RATE_LIMITED", "too many requests", fiber.StatusTooManyRequests)
		}
		return c.Next()
	}
}
