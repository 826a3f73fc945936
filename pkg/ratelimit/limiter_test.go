package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreAllowsUpToLimitThenBlocks(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		res, err := store.Check(ctx, "k", 60000, 5, now)
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("expected request %d to be allowed", i+1)
		}
	}

	res, err := store.Check(ctx, "k", 60000, 5, now)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected 6th request within window to be rate limited")
	}
}

func TestMemoryStoreAllowsAfterWindowElapses(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		if _, err := store.Check(ctx, "k", 1000, 3, base); err != nil {
			t.Fatalf("Check: %v", err)
		}
	}
	blocked, err := store.Check(ctx, "k", 1000, 3, base)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if blocked.Allowed {
		t.Fatal("expected request to be blocked within window")
	}

	later := base.Add(1100 * time.Millisecond)
	allowed, err := store.Check(ctx, "k", 1000, 3, later)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !allowed.Allowed {
		t.Fatal("expected request to succeed after window elapsed")
	}
}

func TestLimiterEnforcesPerActionLimit(t *testing.T) {
	store := NewMemoryStore()
	limiter := New(Config{
		ActionLimits: map[string]int{"email.send": 2},
		GlobalLimit:  3,
		WindowMs:     60000,
	}, store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := limiter.Check(ctx, "email.send", "core")
		if err != nil || !res.Allowed {
			t.Fatalf("expected email.send %d to be allowed, err=%v res=%+v", i+1, err, res)
		}
	}

	res, err := limiter.Check(ctx, "email.send", "core")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected 3rd email.send to exceed the per-action limit")
	}
}

func TestLimiterDisabledWhenWindowZero(t *testing.T) {
	limiter := New(Config{WindowMs: 0}, NewMemoryStore())
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		res, err := limiter.Check(ctx, "email.send", "core")
		if err != nil || !res.Allowed {
			t.Fatalf("expected rate limiting disabled, got err=%v res=%+v", err, res)
		}
	}
}
