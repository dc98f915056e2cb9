// Package idempotency stores responses of requests sent with an Idempotency-Key
// so that retries replay the first response instead of repeating the side effect.
package idempotency

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no response is stored for a key
var ErrNotFound = errors.New("idempotency record not found")

// Record is a stored response
type Record struct {
	RequestHash string    `json:"request_hash"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the record is past its retention window
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// Store keeps idempotency records and per-key locks.
// Lock returns false when another request with the same key is in flight.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Put(ctx context.Context, key string, record *Record) error
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
