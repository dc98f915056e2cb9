package idempotency

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "idempotency.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStore_GetMissing(t *testing.T) {
	s := newTestBoltStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBoltStore_PutAndGet(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()

	rec := &Record{
		RequestHash: "abc",
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"success":true}`),
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, s.Put(ctx, "7:key-1", rec))

	got, err := s.Get(ctx, "7:key-1")
	require.NoError(t, err)
	assert.Equal(t, 201, got.StatusCode)
	assert.Equal(t, "abc", got.RequestHash)
	assert.JSONEq(t, `{"success":true}`, string(got.Body))
}

func TestBoltStore_ExpiredRecordIsIgnored(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", &Record{StatusCode: 200, ExpiresAt: time.Now().Add(-time.Minute)}))

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBoltStore_LockIsExclusiveUntilUnlocked(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()

	ok, err := s.Lock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Lock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second lock must fail while the first is held")

	require.NoError(t, s.Unlock(ctx, "k"))

	ok, err = s.Lock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBoltStore_StaleLockCanBeTaken(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	ok, err := s.Lock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	s.now = func() time.Time { return base.Add(2 * time.Second) }
	ok, err = s.Lock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBoltStore_UnlockMissingKey(t *testing.T) {
	s := newTestBoltStore(t)
	assert.NoError(t, s.Unlock(context.Background(), "never-locked"))
}
