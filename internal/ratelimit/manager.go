package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	redisBreakerDuration = 30 * time.Second
	redisPingTimeout     = 2 * time.Second
)

// SettingsProvider supplies the latest settings snapshot.
type SettingsProvider func() SettingsConfig

// RedisClientFactory constructs a Redis client for the given options.
type RedisClientFactory func(options *redis.Options) *redis.Client

// Manager enforces per-user limits. Redis is used while it is enabled and
// healthy; any Redis error opens a breaker and requests are counted in
// memory until it closes.
type Manager struct {
	settings SettingsProvider
	now      func() time.Time
	memory   *MemoryLimiter
	redis    *redisBackend
}

// NewManager constructs a Manager with default dependencies when nil.
func NewManager(provider SettingsProvider, nowFn func() time.Time, newRedisClient RedisClientFactory) *Manager {
	if provider == nil {
		provider = LoadSettingsConfig
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if newRedisClient == nil {
		newRedisClient = redis.NewClient
	}
	return &Manager{
		settings: provider,
		now:      nowFn,
		memory:   NewMemoryLimiter(),
		redis:    &redisBackend{dial: newRedisClient},
	}
}

// Check resolves userID's limit for operation and consumes one request
// from its window.
func (m *Manager) Check(ctx context.Context, db *gorm.DB, userID uint64, operation string) (Decision, Result, error) {
	if m == nil {
		return Decision{}, Result{Allowed: true}, nil
	}
	cfg := m.settings()
	decision, errResolve := ResolveLimit(ctx, db, userID, operation, cfg)
	if errResolve != nil {
		return Decision{}, Result{}, errResolve
	}
	result, errAllow := m.allow(ctx, KeyForDecision(userID, decision), decision.Limit, cfg)
	return decision, result, errAllow
}

func (m *Manager) allow(ctx context.Context, key string, limit int, cfg SettingsConfig) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	now := m.now()
	if cfg.RedisEnabled {
		if result, errRedis := m.redis.allow(ctx, cfg, key, limit, now); errRedis == nil {
			return result, nil
		}
	}
	return m.memory.Allow(ctx, key, limit, now)
}

// Close releases the Redis client, if one was opened.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	return m.redis.close()
}

// redisTarget identifies one Redis connection configuration.
type redisTarget struct {
	addr     string
	password string
	db       int
	prefix   string
}

func targetOf(cfg SettingsConfig) redisTarget {
	return redisTarget{
		addr:     strings.TrimSpace(cfg.RedisAddr),
		password: strings.TrimSpace(cfg.RedisPassword),
		db:       max(cfg.RedisDB, 0),
		prefix:   strings.TrimSpace(cfg.RedisPrefix),
	}
}

// redisBackend owns the Redis limiter and its breaker. The limiter is
// rebuilt whenever the configured target changes.
type redisBackend struct {
	dial RedisClientFactory

	mu        sync.Mutex
	limiter   *RedisLimiter
	target    redisTarget
	openUntil time.Time
}

var errRedisBreakerOpen = errors.New("rate limit redis: breaker open")

func (b *redisBackend) allow(ctx context.Context, cfg SettingsConfig, key string, limit int, now time.Time) (Result, error) {
	limiter, errLimiter := b.limiterFor(ctx, targetOf(cfg), now)
	if errLimiter != nil {
		if !errors.Is(errLimiter, errRedisBreakerOpen) {
			b.trip(errLimiter, now)
		}
		return Result{}, errLimiter
	}
	result, errAllow := limiter.Allow(ctx, key, limit, now)
	if errAllow != nil {
		b.trip(errAllow, now)
		return Result{}, errAllow
	}
	return result, nil
}

func (b *redisBackend) limiterFor(ctx context.Context, target redisTarget, now time.Time) (*RedisLimiter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Before(b.openUntil) {
		return nil, errRedisBreakerOpen
	}
	if target.addr == "" {
		return nil, errors.New("rate limit redis: missing address")
	}
	if b.limiter != nil && b.target == target {
		return b.limiter, nil
	}
	b.closeLocked()

	client := b.dial(&redis.Options{Addr: target.addr, Password: target.password, DB: target.db})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		return nil, errPing
	}
	b.limiter = NewRedisLimiter(client, target.prefix)
	b.target = target
	return b.limiter, nil
}

func (b *redisBackend) trip(err error, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Before(b.openUntil) {
		return
	}
	b.openUntil = now.Add(redisBreakerDuration)
	log.WithError(err).Warn("rate limit: redis unavailable, counting in memory")
}

func (b *redisBackend) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked()
}

func (b *redisBackend) closeLocked() error {
	if b.limiter == nil {
		return nil
	}
	errClose := b.limiter.Close()
	b.limiter = nil
	b.target = redisTarget{}
	return errClose
}
