package middleware

import (
	"strings"
	"time"

	"github.com/code-centre/tech-centre-api/utils/response"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// SecurityConfig holds the knobs of the global middleware chain.
// A zero RateLimitRequests disables the limiter.
type SecurityConfig struct {
	AllowedOrigins    string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// SetupSecurity installs request ids, access logs, panic recovery, security
// headers, CORS and the rate limiter, in that order.
func SetupSecurity(app *fiber.App, config SecurityConfig) {
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format:     "[HTTP] ${time} ${locals:requestid} ${method} ${path} -> ${status} (${latency}) ${ip}\n",
		TimeFormat: time.RFC3339,
	}))
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(helmet.New(helmet.Config{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "no-referrer",
		HSTSMaxAge:         31536000,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     normalizeOrigins(config.AllowedOrigins),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization," + IdempotencyKeyHeader,
		ExposeHeaders:    IdempotencyReplayedHeader + ",Content-Disposition",
		AllowCredentials: true,
		MaxAge:           int((24 * time.Hour).Seconds()),
	}))

	if config.RateLimitRequests > 0 {
		app.Use(rateLimiter(config.RateLimitRequests, config.RateLimitWindow))
	}
}

// normalizeOrigins drops blanks and spaces from a comma separated origin list
func normalizeOrigins(raw string) string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return strings.Join(origins, ",")
}

// rateLimiter limits per client IP. Prometheus scrapes are never limited.
func rateLimiter(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:          max,
		Expiration:   window,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		Next:         func(c *fiber.Ctx) bool { return c.Path() == "/metrics" },
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, fiber.StatusTooManyRequests,
				"Too many requests, please slow down", "RATE_LIMIT_EXCEEDED")
		},
	})
}
