package handlers

import (
	"context"
	"time"

	"github.com/code-centre/tech-centre-api/services/cron"
	"github.com/code-centre/tech-centre-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// HealthChecker is implemented by the database store
type HealthChecker interface {
	HealthCheck() error
}

// OrphanCounter counts enrollments that never got their invoices
type OrphanCounter interface {
	CountEnrollmentsWithoutInvoices(ctx context.Context, createdBefore time.Time) (int64, error)
}

// Pinger is implemented by the Redis cache
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports dependency status on /ping
type HealthHandler struct {
	db      HealthChecker
	orphans OrphanCounter
	cache   Pinger
}

// NewHealthHandler creates a new health handler. cache may be nil.
func NewHealthHandler(db HealthChecker, orphans OrphanCounter, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, orphans: orphans, cache: cache}
}

// Ping handles GET /api/v1/ping
func (h *HealthHandler) Ping(c *fiber.Ctx) error {
	if err := h.db.HealthCheck(); err != nil {
		return response.ServiceUnavailable(c, "Database is not reachable")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	status := fiber.Map{
		"status":   "ok",
		"database": "ok",
	}

	if h.cache != nil {
		status["cache"] = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			status["cache"] = "unavailable"
		}
	}

	if h.orphans != nil {
		count, err := h.orphans.CountEnrollmentsWithoutInvoices(ctx, time.Now().Add(-cron.OrphanGracePeriod))
		if err != nil {
			return response.ServiceUnavailable(c, "Failed to count orphaned enrollments")
		}
		status["orphaned_enrollments"] = count
		if count > 0 {
			status["status"] = "degraded"
		}
	}

	return response.Success(c, status)
}
