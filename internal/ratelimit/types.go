// Package ratelimit throttles money-moving requests per user in one-second
// fixed windows, in Redis when configured and in process memory otherwise.
package ratelimit

import (
	"context"
	"strconv"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter provides rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error)
}

// Scope indicates which dimension the rate limit applies to.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeUser
	ScopeOperation
)

// Decision is the limit that applies to one user and operation.
type Decision struct {
	Limit     int
	Scope     Scope
	Operation string
}

// KeyForDecision returns the counter key for userID under decision, or ""
// when nothing should be counted.
func KeyForDecision(userID uint64, decision Decision) string {
	if userID == 0 || decision.Limit <= 0 {
		return ""
	}
	key := "u:" + strconv.FormatUint(userID, 10)
	switch decision.Scope {
	case ScopeUser:
		return key
	case ScopeOperation:
		if decision.Operation != "" {
			return key + ":op:" + decision.Operation
		}
	}
	return ""
}

// window returns the second now falls in and the instant it ends.
func window(now time.Time) (int64, time.Time) {
	sec := now.Unix()
	return sec, time.Unix(sec+1, 0).UTC()
}

// verdict turns the post-increment count into a Result.
func verdict(count int64, limit int, reset time.Time) Result {
	if count > int64(limit) {
		return Result{Reset: reset}
	}
	return Result{Allowed: true, Remaining: limit - int(count), Reset: reset}
}
