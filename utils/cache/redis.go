package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by GetJSON for a missing or expired key
var ErrNotFound = errors.New("key not found in cache")

// keyspace prefixes every key so the API can share a Redis database
const keyspace = "tech-centre:"

const dialTimeout = 5 * time.Second

// RedisCache is the Redis client shared by idempotency records and token revocation
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redisURL and fails when the server does not answer a ping
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

func key(k string) string {
	return keyspace + k
}

// Set stores value under k for ttl
func (r *RedisCache) Set(ctx context.Context, k string, value interface{}, ttl time.Duration) error {
	return r.client.Set(ctx, key(k), value, ttl).Err()
}

// SetJSON encodes value and stores it under k for ttl
func (r *RedisCache) SetJSON(ctx context.Context, k string, value interface{}, ttl time.Duration) error {
	raw, err := sonic.Marshal(value)
	if err != nil {
		return err
	}
	return r.Set(ctx, k, raw, ttl)
}

// GetJSON decodes the value under k into dest
func (r *RedisCache) GetJSON(ctx context.Context, k string, dest interface{}) error {
	raw, err := r.client.Get(ctx, key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return sonic.Unmarshal(raw, dest)
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	for i := range keys {
		keys[i] = key(keys[i])
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisCache) Exists(ctx context.Context, k string) (bool, error) {
	n, err := r.client.Exists(ctx, key(k)).Result()
	return n > 0, err
}

// SetNX stores value only when k is free. It backs the idempotency lock.
func (r *RedisCache) SetNX(ctx context.Context, k string, value interface{}, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key(k), value, ttl).Result()
}

// Ping is used by the health endpoint
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
