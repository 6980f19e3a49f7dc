package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter counts requests of the current second in process memory.
// Counters from earlier seconds are dropped as soon as the window moves.
type MemoryLimiter struct {
	mu     sync.Mutex
	second int64
	counts map[string]int64
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{counts: make(map[string]int64)}
}

// Allow consumes one request for key when it is under limit.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	sec, reset := window(now)

	l.mu.Lock()
	defer l.mu.Unlock()
	if sec != l.second {
		l.second = sec
		clear(l.counts)
	}
	count := l.counts[key]
	if count >= int64(limit) {
		return verdict(count+1, limit, reset), nil
	}
	count++
	l.counts[key] = count
	return verdict(count, limit, reset), nil
}
