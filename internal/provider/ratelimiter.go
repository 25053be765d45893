package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket sized for the CoinGecko request budget.
// The bucket starts full, so a burst up to capacity passes immediately
// and sustained callers settle at one request per interval.
type RateLimiter struct {
	mu        sync.Mutex
	capacity  int
	interval  time.Duration
	available int
	last      time.Time
}

func NewRateLimiter(capacity int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		capacity:  capacity,
		interval:  interval,
		available: capacity,
		last:      time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		ok, retry := r.take()
		if ok {
			return nil
		}

		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// take consumes a token when one is available; otherwise it reports how
// long until the next one accrues.
func (r *RateLimiter) take() (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	accrued := int(now.Sub(r.last) / r.interval)
	if accrued > 0 {
		r.available += accrued
		if r.available > r.capacity {
			r.available = r.capacity
		}
		r.last = r.last.Add(time.Duration(accrued) * r.interval)
	}

	if r.available > 0 {
		r.available--
		return true, 0
	}
	return false, r.interval - now.Sub(r.last)
}
