package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginFailKeyPrefix = "login:fail:"

// RedisLoginLimiter implements LoginAttemptLimiter using Redis counters.
// Each failed login increments a per-username counter with a sliding window;
// once the counter reaches the threshold further attempts are blocked until
// the window expires.
type RedisLoginLimiter struct {
	client    *redis.Client
	threshold int
	window    time.Duration
}

// NewRedisLoginLimiter creates a new RedisLoginLimiter
func NewRedisLoginLimiter(client *redis.Client, threshold int, window time.Duration) *RedisLoginLimiter {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLoginLimiter{client: client, threshold: threshold, window: window}
}

// RecordFailure increments the failure counter and returns the new count
func (l *RedisLoginLimiter) RecordFailure(ctx context.Context, username string) (int, error) {
	key := loginFailKeyPrefix + username

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to record login failure: %w", err)
	}

	return int(incr.Val()), nil
}

// IsBlocked reports whether the username has exceeded the failure threshold
func (l *RedisLoginLimiter) IsBlocked(ctx context.Context, username string) (bool, error) {
	count, err := l.client.Get(ctx, loginFailKeyPrefix+username).Int()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to check login failures: %w", err)
	}
	return count >= l.threshold, nil
}

// Reset clears the failure counter after a successful login
func (l *RedisLoginLimiter) Reset(ctx context.Context, username string) error {
	if err := l.client.Del(ctx, loginFailKeyPrefix+username).Err(); err != nil {
		return fmt.Errorf("failed to reset login failures: %w", err)
	}
	return nil
}

// Ensure RedisLoginLimiter implements LoginAttemptLimiter
var _ LoginAttemptLimiter = (*RedisLoginLimiter)(nil)
