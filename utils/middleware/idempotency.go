package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/code-centre/tech-centre-api/utils/idempotency"
	"github.com/code-centre/tech-centre-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "Idempotent-Replayed"
)

// IdempotencyConfig configures the Idempotency middleware
type IdempotencyConfig struct {
	Store     idempotency.Store
	Retention time.Duration
	LockTTL   time.Duration
}

// Idempotency replays the stored response when a request is retried with the
// same Idempotency-Key. Keys are scoped to the authenticated user and route, so
// it must run after the auth middleware. Requests without the header pass through.
func Idempotency(cfg IdempotencyConfig) fiber.Handler {
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}

	return func(c *fiber.Ctx) error {
		key := c.Get(IdempotencyKeyHeader)
		if key == "" || cfg.Store == nil {
			return c.Next()
		}
		if len(key) > 255 {
			return response.BadRequest(c, "Idempotency-Key must be at most 255 characters")
		}

		userID, _ := GetUserID(c)
		scoped := fmt.Sprintf("%d:%s:%s:%s", userID, c.Method(), c.Route().Path, key)
		hash := requestHash(c.Body())
		ctx := c.UserContext()

		rec, err := cfg.Store.Get(ctx, scoped)
		switch {
		case err == nil:
			return replay(c, rec, hash)
		case !errors.Is(err, idempotency.ErrNotFound):
			log.Printf("[IDEMPOTENCY] lookup failed for key %s: %v", key, err)
			return response.ServiceUnavailable(c, "Unable to verify Idempotency-Key, please retry")
		}

		locked, err := cfg.Store.Lock(ctx, scoped, cfg.LockTTL)
		if err != nil {
			log.Printf("[IDEMPOTENCY] lock failed for key %s: %v", key, err)
			return response.ServiceUnavailable(c, "Unable to verify Idempotency-Key, please retry")
		}
		if !locked {
			return response.Conflict(c, "A request with this Idempotency-Key is already being processed")
		}
		defer func() {
			if err := cfg.Store.Unlock(ctx, scoped); err != nil {
				log.Printf("[IDEMPOTENCY] unlock failed for key %s: %v", key, err)
			}
		}()

		// the first request may have stored its response and unlocked between Get and Lock
		rec, err = cfg.Store.Get(ctx, scoped)
		switch {
		case err == nil:
			return replay(c, rec, hash)
		case !errors.Is(err, idempotency.ErrNotFound):
			log.Printf("[IDEMPOTENCY] lookup failed for key %s: %v", key, err)
			return response.ServiceUnavailable(c, "Unable to verify Idempotency-Key, please retry")
		}

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status < 200 || status >= 300 {
			return nil
		}

		now := time.Now()
		record := &idempotency.Record{
			RequestHash: hash,
			StatusCode:  status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
			CreatedAt:   now,
			ExpiresAt:   now.Add(cfg.Retention),
		}
		if err := cfg.Store.Put(ctx, scoped, record); err != nil {
			log.Printf("[IDEMPOTENCY] failed to store response for key %s: %v", key, err)
		}
		return nil
	}
}

func replay(c *fiber.Ctx, rec *idempotency.Record, hash string) error {
	if rec.RequestHash != hash {
		return response.Error(c, fiber.StatusUnprocessableEntity,
			"Idempotency-Key was already used with a different request body", "IDEMPOTENCY_KEY_REUSED")
	}
	c.Set(IdempotencyReplayedHeader, "true")
	if rec.ContentType != "" {
		c.Set(fiber.HeaderContentType, rec.ContentType)
	}
	return c.Status(rec.StatusCode).Send(rec.Body)
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
