package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps fixed-window counters in Redis so the limit holds
// across multiple instances. Each window is an INCR'd key whose TTL is
// set when the window opens.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string, policy Policy) (Decision, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", policy.Name, key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// ExpireNX only arms the TTL on the first increment of a window
	pipe.ExpireNX(ctx, redisKey, policy.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	if count := incr.Val(); count > int64(policy.Limit) {
		ttl, err := l.client.TTL(ctx, redisKey).Result()
		if err != nil || ttl < 0 {
			ttl = policy.Window
		}
		return Decision{Allowed: false, RetryAfter: ttl}, nil
	}

	return Decision{Allowed: true}, nil
}

var _ Limiter = (*RedisLimiter)(nil)
