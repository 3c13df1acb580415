package remote

import (
	"context"
	"time"
)

// RetryConfig tunes the exponential backoff wrapper.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig matches the host client defaults: three attempts,
// 100ms initial backoff doubling up to 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// Retrier retries fallible operations with exponential backoff. A
// permanently failing operation is invoked exactly MaxAttempts times
// and the last failure is returned.
type Retrier struct {
	cfg RetryConfig

	// sleep is replaceable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a retrier with the given configuration.
// MaxAttempts below 1 is treated as 1.
func NewRetrier(cfg RetryConfig) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Retrier{cfg: cfg, sleep: sleepCtx}
}

// Do invokes op until it succeeds or MaxAttempts is exhausted. Backoff
// sleeps honor ctx; cancellation surfaces ctx.Err() immediately, not
// the operation's last error.
func (r *Retrier) Do(ctx context.Context, op func() error) error {
	backoff := r.cfg.InitialBackoff
	var lastErr error

	for attempt := 1; ; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt >= r.cfg.MaxAttempts {
			return lastErr
		}

		if err := r.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = time.Duration(float64(backoff) * r.cfg.Multiplier)
		if backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
