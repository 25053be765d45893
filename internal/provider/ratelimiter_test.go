package provider

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllowsBurst(t *testing.T) {
	limiter := NewRateLimiter(3, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("call %d should not block: %v", i, err)
		}
	}
}

func TestRateLimiterBlocksWhenExhausted(t *testing.T) {
	limiter := NewRateLimiter(1, time.Hour)

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("expected ctx deadline while exhausted")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	limiter := NewRateLimiter(1, 10*time.Millisecond)

	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("expected refill within deadline: %v", err)
	}
}

func TestRateLimiterReportsRetryDelay(t *testing.T) {
	limiter := NewRateLimiter(1, time.Hour)

	if ok, _ := limiter.take(); !ok {
		t.Fatal("bucket should start full")
	}
	ok, retry := limiter.take()
	if ok {
		t.Fatal("bucket should be empty")
	}
	if retry <= 0 || retry > time.Hour {
		t.Fatalf("retry hint out of range: %s", retry)
	}
}
