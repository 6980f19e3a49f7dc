package ratelimit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window keys outlive their second so late increments still expire.
const redisKeyTTL = 2 * time.Second

// RedisLimiter shares fixed-window counters between server instances.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: strings.TrimSpace(prefix)}
}

// Allow increments key's counter for the current second.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}
	sec, reset := window(now)
	windowKey := l.windowKey(key, sec)

	var incr *redis.IntCmd
	if _, errPipe := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, windowKey)
		pipe.ExpireNX(ctx, windowKey, redisKeyTTL)
		return nil
	}); errPipe != nil {
		return Result{}, errPipe
	}
	return verdict(incr.Val(), limit, reset), nil
}

// Close closes the underlying client.
func (l *RedisLimiter) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}

func (l *RedisLimiter) windowKey(key string, sec int64) string {
	suffix := key + ":" + strconv.FormatInt(sec, 10)
	if l.prefix == "" {
		return suffix
	}
	return l.prefix + ":" + suffix
}
