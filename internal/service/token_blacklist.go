package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/school-auth-service/pkg/database"
)

// RedisTokenBlacklist stores revoked token ids in Redis with a TTL matching
// the token's remaining lifetime
type RedisTokenBlacklist struct {
	redis *database.Redis
}

// NewRedisTokenBlacklist creates a new Redis-backed token blacklist
func NewRedisTokenBlacklist(redis *database.Redis) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{redis: redis}
}

func blacklistKey(tokenID string) string {
	return fmt.Sprintf("blacklist:jti:%s", tokenID)
}

// Revoke blacklists a token id. Non-positive ttl is a no-op since the token
// has already expired.
func (b *RedisTokenBlacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.redis.Client.Set(ctx, blacklistKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to add token to blacklist: %w", err)
	}
	return nil
}

// IsRevoked checks if a token id is blacklisted
func (b *RedisTokenBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	exists, err := b.redis.Client.Exists(ctx, blacklistKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return exists > 0, nil
}
