package fetcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds the retry loop.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
}

// LinearBackoff is the wait before retry number attempt (1-based): base * attempt.
func LinearBackoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 || base <= 0 {
		return 0
	}
	return base * time.Duration(attempt)
}

// Retrying retries a Fetcher with linear backoff.
type Retrying struct {
	next    Fetcher
	cfg     RetryConfig
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
	onRetry func(url string, attempt int, err error)
}

// RetryOption customizes Retrying.
type RetryOption func(*Retrying)

// WithSleep replaces the context-aware sleep, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) RetryOption {
	return func(r *Retrying) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithRetryHook is called before every retry.
func WithRetryHook(fn func(url string, attempt int, err error)) RetryOption {
	return func(r *Retrying) {
		r.onRetry = fn
	}
}

// NewRetrying wraps next. A negative MaxRetries is treated as zero.
func NewRetrying(next Fetcher, cfg RetryConfig, logger *zap.Logger, opts ...RetryOption) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	r := &Retrying{
		next:   next,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch tries at most MaxRetries+1 times. When every attempt fails the error wraps both
// ErrExhausted and the last transport error.
func (r *Retrying) Fetch(ctx context.Context, url string) ([]byte, error) {
	attempts := r.cfg.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := r.next.Fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !Retryable(err) {
			return nil, err
		}
		if attempt == attempts {
			break
		}

		delay := LinearBackoff(r.cfg.BaseDelay, attempt)
		r.logger.Warn("fetch failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", r.cfg.MaxRetries),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if r.onRetry != nil {
			r.onRetry(url, attempt, err)
		}
		if err := r.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("retry backoff: %w", err)
		}
	}
	r.logger.Error("fetch gave up", zap.String("url", url), zap.Int("attempts", attempts), zap.Error(lastErr))
	return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrExhausted, url, attempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
