package auth

import (
	"context"
	"time"

	"github.com/code-centre/tech-centre-api/utils/cache"
)

const revokedKeyPrefix = "auth:revoked:"

// RevocationList keeps revoked token ids in Redis until the token would have expired anyway
type RevocationList struct {
	cache *cache.RedisCache
}

// NewRevocationList creates a revocation list backed by Redis
func NewRevocationList(c *cache.RedisCache) *RevocationList {
	return &RevocationList{cache: c}
}

// RevokeToken blocks the token with the given JTI until expiresAt
func (r *RevocationList) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.cache.Set(ctx, revokedKeyPrefix+jti, "1", ttl)
}

// IsTokenRevoked checks if a token has been revoked
func (r *RevocationList) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return r.cache.Exists(ctx, revokedKeyPrefix+jti)
}
