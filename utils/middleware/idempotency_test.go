package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/code-centre/tech-centre-api/utils/idempotency"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdempotentApp(t *testing.T, status int) (*fiber.App, *int32) {
	t.Helper()
	store, err := idempotency.NewBoltStore(filepath.Join(t.TempDir(), "idem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var calls int32
	app := fiber.New()
	app.Post("/enrollments",
		func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(7))
			return c.Next()
		},
		Idempotency(IdempotencyConfig{Store: store}),
		func(c *fiber.Ctx) error {
			n := atomic.AddInt32(&calls, 1)
			return c.Status(status).JSON(fiber.Map{"call": n})
		},
	)
	return app, &calls
}

func post(t *testing.T, app *fiber.App, key, body string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/enrollments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b), resp.Header.Get(IdempotencyReplayedHeader)
}

func TestIdempotency_ReplaysFirstResponse(t *testing.T) {
	app, calls := newIdempotentApp(t, fiber.StatusCreated)

	status, body, replayed := post(t, app, "key-1", `{"cohort_id":1}`)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.JSONEq(t, `{"call":1}`, body)
	assert.Empty(t, replayed)

	status, body, replayed = post(t, app, "key-1", `{"cohort_id":1}`)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.JSONEq(t, `{"call":1}`, body)
	assert.Equal(t, "true", replayed)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestIdempotency_DifferentBodyWithSameKey(t *testing.T) {
	app, calls := newIdempotentApp(t, fiber.StatusCreated)

	post(t, app, "key-1", `{"cohort_id":1}`)
	status, body, _ := post(t, app, "key-1", `{"cohort_id":2}`)

	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "IDEMPOTENCY_KEY_REUSED")
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestIdempotency_WithoutKeyAlwaysExecutes(t *testing.T) {
	app, calls := newIdempotentApp(t, fiber.StatusCreated)

	post(t, app, "", `{"cohort_id":1}`)
	post(t, app, "", `{"cohort_id":1}`)

	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestIdempotency_FailedResponsesAreNotStored(t *testing.T) {
	app, calls := newIdempotentApp(t, fiber.StatusBadRequest)

	post(t, app, "key-1", `{"cohort_id":1}`)
	status, _, replayed := post(t, app, "key-1", `{"cohort_id":1}`)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Empty(t, replayed)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

// finishingStore stores the first request's response right before Lock, as if
// that request completed between the lookup and the lock
type finishingStore struct {
	*idempotency.BoltStore
	record *idempotency.Record
}

func (s *finishingStore) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s.record != nil {
		if err := s.BoltStore.Put(ctx, key, s.record); err != nil {
			return false, err
		}
		s.record = nil
	}
	return s.BoltStore.Lock(ctx, key, ttl)
}

func TestIdempotency_ReplaysResponseStoredBeforeLock(t *testing.T) {
	bolt, err := idempotency.NewBoltStore(filepath.Join(t.TempDir(), "idem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	body := `{"cohort_id":1}`
	now := time.Now()
	store := &finishingStore{BoltStore: bolt, record: &idempotency.Record{
		RequestHash: requestHash([]byte(body)),
		StatusCode:  fiber.StatusCreated,
		ContentType: fiber.MIMEApplicationJSON,
		Body:        []byte(`{"call":1}`),
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}}

	var calls int32
	app := fiber.New()
	app.Post("/enrollments",
		func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(7))
			return c.Next()
		},
		Idempotency(IdempotencyConfig{Store: store}),
		func(c *fiber.Ctx) error {
			n := atomic.AddInt32(&calls, 1)
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": n + 1})
		},
	)

	status, got, replayed := post(t, app, "k", body)

	assert.Equal(t, fiber.StatusCreated, status)
	assert.JSONEq(t, `{"call":1}`, got)
	assert.Equal(t, "true", replayed)
	assert.EqualValues(t, 0, atomic.LoadInt32(&calls))

	locked, err := bolt.Lock(context.Background(), "7:POST:/enrollments:k", time.Second)
	require.NoError(t, err)
	assert.True(t, locked, "lock released after replay")
}
