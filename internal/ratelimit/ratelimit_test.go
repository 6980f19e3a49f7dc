package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/growtradenfts/platform/internal/dbtest"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/redis/go-redis/v9"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	l := NewMemoryLimiter()
	now := time.Unix(1_700_000_000, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "u:1", 2, now)
		if err != nil || !res.Allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i, res.Allowed, err)
		}
	}
	if res, _ := l.Allow(ctx, "u:1", 2, now); res.Allowed {
		t.Fatalf("third request in window allowed")
	}
	if res, _ := l.Allow(ctx, "u:2", 2, now); !res.Allowed {
		t.Fatalf("other key throttled")
	}
	if res, _ := l.Allow(ctx, "u:1", 2, now.Add(time.Second)); !res.Allowed || res.Remaining != 1 {
		t.Fatalf("next window: %+v", res)
	}
}

func TestKeyForDecision(t *testing.T) {
	cases := []struct {
		decision Decision
		want     string
	}{
		{Decision{Limit: 3, Scope: ScopeUser}, "u:7"},
		{Decision{Limit: 3, Scope: ScopeOperation, Operation: "nft_purchase"}, "u:7:op:nft_purchase"},
		{Decision{Limit: 3, Scope: ScopeOperation}, ""},
		{Decision{Limit: 0, Scope: ScopeUser}, ""},
		{Decision{Limit: 3, Scope: ScopeNone}, ""},
	}
	for _, tc := range cases {
		if got := KeyForDecision(7, tc.decision); got != tc.want {
			t.Fatalf("KeyForDecision(%+v) = %q, want %q", tc.decision, got, tc.want)
		}
	}
}

func TestResolveLimit(t *testing.T) {
	conn := dbtest.Open(t)
	member := dbtest.CreateUser(t, conn, nil)
	admin := dbtest.CreateUser(t, conn, func(u *models.User) { u.Role = models.RoleAdmin })
	cfg := SettingsConfig{Limit: 5, Operations: map[string]int{"nft_purchase": 1, "withdraw": 0}}
	ctx := context.Background()

	got, err := ResolveLimit(ctx, conn, member.ID, "NFT_Purchase", cfg)
	if err != nil || got.Scope != ScopeOperation || got.Limit != 1 || got.Operation != "nft_purchase" {
		t.Fatalf("operation override: %+v err=%v", got, err)
	}
	got, err = ResolveLimit(ctx, conn, member.ID, "nft_sale", cfg)
	if err != nil || got.Scope != ScopeUser || got.Limit != 5 {
		t.Fatalf("default: %+v err=%v", got, err)
	}
	got, err = ResolveLimit(ctx, conn, member.ID, "withdraw", cfg)
	if err != nil || got.Limit != 0 {
		t.Fatalf("zero override should disable: %+v err=%v", got, err)
	}
	got, err = ResolveLimit(ctx, conn, admin.ID, "nft_purchase", cfg)
	if err != nil || got.Limit != 0 {
		t.Fatalf("admin should be exempt: %+v err=%v", got, err)
	}
}

func TestManagerFallsBackToMemory(t *testing.T) {
	conn := dbtest.Open(t)
	member := dbtest.CreateUser(t, conn, nil)
	now := time.Unix(1_700_000_000, 0)
	m := NewManager(func() SettingsConfig {
		return SettingsConfig{Limit: 1, RedisEnabled: true, RedisAddr: "127.0.0.1:1", RedisPrefix: "test"}
	}, func() time.Time { return now }, func(options *redis.Options) *redis.Client {
		options.DialTimeout = 50 * time.Millisecond
		return redis.NewClient(options)
	})
	defer func() { _ = m.Close() }()

	_, first, err := m.Check(context.Background(), conn, member.ID, "nft_purchase")
	if err != nil || !first.Allowed {
		t.Fatalf("first: %+v err=%v", first, err)
	}
	_, second, err := m.Check(context.Background(), conn, member.ID, "nft_purchase")
	if err != nil || second.Allowed {
		t.Fatalf("second should be throttled by the memory fallback: %+v err=%v", second, err)
	}
}
