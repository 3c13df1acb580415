package remote

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is sliding-window admission control. At most maxRequests
// calls are admitted per window; an Acquire beyond that suspends until
// the oldest recorded call falls out of the window.
//
// The timestamp ledger is fully serialized: concurrent Acquire calls
// queue on the mutex and each records its own admission.
type RateLimiter struct {
	maxRequests int
	window      time.Duration

	mu       sync.Mutex
	requests []time.Time

	// now is replaceable for tests.
	now func() time.Time
}

// NewRateLimiter creates a limiter admitting maxRequests per window.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Acquire blocks until the call may proceed, then records it. The wait
// honors ctx; on cancellation the call is not recorded.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.prune()
		if len(rl.requests) < rl.maxRequests {
			rl.requests = append(rl.requests, rl.now())
			rl.mu.Unlock()
			return nil
		}
		// Wait for the oldest admission to leave the window, then
		// re-check: another waiter may have claimed the freed slot.
		wait := rl.window - rl.now().Sub(rl.requests[0])
		rl.mu.Unlock()

		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// CanProceed reports whether an Acquire would return without waiting.
// It prunes expired timestamps but records nothing.
func (rl *RateLimiter) CanProceed() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.prune()
	return len(rl.requests) < rl.maxRequests
}

// prune drops timestamps older than now-window. Caller holds mu.
func (rl *RateLimiter) prune() {
	cutoff := rl.now().Add(-rl.window)
	keep := 0
	for _, ts := range rl.requests {
		if ts.After(cutoff) {
			break
		}
		keep++
	}
	rl.requests = rl.requests[keep:]
}
