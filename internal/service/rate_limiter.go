package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/school-auth-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateLimitResult is the outcome of a single rate limit check
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter decides whether a caller identified by key may proceed
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
}

// RedisRateLimiter implements a sliding window log in a Redis sorted set.
// Every attempt is recorded first and removed again when it exceeds the
// limit, so concurrent callers cannot both slip under it.
type RedisRateLimiter struct {
	redis *database.Redis
	now   func() time.Time
}

// NewRedisRateLimiter creates a new Redis-backed rate limiter
func NewRedisRateLimiter(redis *database.Redis) *RedisRateLimiter {
	return &RedisRateLimiter{redis: redis, now: time.Now}
}

// Allow records an attempt and reports whether it fits in the window
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	now := r.now()
	redisKey := "ratelimit:" + key
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()
	windowStart := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	var count *redis.IntCmd
	_, err := r.redis.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "0", windowStart)
		pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
		count = pipe.ZCard(ctx, redisKey)
		pipe.Expire(ctx, redisKey, window+time.Minute)
		return nil
	})
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to record rate limit attempt: %w", err)
	}

	n := int(count.Val())
	if n <= limit {
		return RateLimitResult{Allowed: true, Remaining: limit - n}, nil
	}

	if err := r.redis.Client.ZRem(ctx, redisKey, member).Err(); err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to discard rejected attempt: %w", err)
	}

	result := RateLimitResult{Allowed: false, RetryAfter: window}
	oldest, err := r.redis.Client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err == nil && len(oldest) > 0 {
		oldestAt := time.Unix(0, int64(oldest[0].Score))
		if retry := oldestAt.Add(window).Sub(now); retry > 0 {
			result.RetryAfter = retry
		}
	}

	return result, nil
}
