// Package throttle limits repeated failed sign-ins per username.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "booktracker:signin:"

// commands is the slice of the Redis API the limiter needs.
type commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisLimiter counts failures in a fixed window that starts at the first
// failure. Once MaxAttempts failures are recorded the key is blocked until
// the window expires or Reset is called.
type RedisLimiter struct {
	client      commands
	maxAttempts int
	window      time.Duration
}

func NewRedisLimiter(client commands, maxAttempts int, window time.Duration) *RedisLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RedisLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

// Dial connects to the Redis server at url and checks it answers.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

func (l *RedisLimiter) Blocked(ctx context.Context, username string) (bool, error) {
	n, err := l.client.Get(ctx, keyPrefix+username).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return n >= l.maxAttempts, nil
}

func (l *RedisLimiter) RecordFailure(ctx context.Context, username string) error {
	key := keyPrefix + username
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return l.client.Expire(ctx, key, l.window).Err()
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, username string) error {
	return l.client.Del(ctx, keyPrefix+username).Err()
}
