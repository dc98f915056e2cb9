package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/code-centre/tech-centre-api/utils/cache"
)

const (
	redisRecordPrefix = "idempotency:record:"
	redisLockPrefix   = "idempotency:lock:"
)

// RedisStore keeps records in Redis with the record's own expiry as TTL
type RedisStore struct {
	cache *cache.RedisCache
}

// NewRedisStore creates a Redis backed store
func NewRedisStore(c *cache.RedisCache) *RedisStore {
	return &RedisStore{cache: c}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	var rec Record
	if err := s.cache.GetJSON(ctx, redisRecordPrefix+key, &rec); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, record *Record) error {
	ttl := time.Until(record.ExpiresAt)
	if record.ExpiresAt.IsZero() {
		ttl = 0
	} else if ttl <= 0 {
		return nil
	}
	return s.cache.SetJSON(ctx, redisRecordPrefix+key, record, ttl)
}

func (s *RedisStore) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.cache.SetNX(ctx, redisLockPrefix+key, time.Now().Unix(), ttl)
}

func (s *RedisStore) Unlock(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, redisLockPrefix+key)
}
