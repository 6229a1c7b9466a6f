package fetcher

import "context"

// Waiter blocks until a URL may be requested.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// RateLimited waits on a Waiter before every fetch.
type RateLimited struct {
	next    Fetcher
	limiter Waiter
}

// NewRateLimited wraps next. A nil limiter disables waiting.
func NewRateLimited(next Fetcher, limiter Waiter) *RateLimited {
	return &RateLimited{next: next, limiter: limiter}
}

// Fetch waits for the limiter, then delegates.
func (r *RateLimited) Fetch(ctx context.Context, url string) ([]byte, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, url); err != nil {
			return nil, err
		}
	}
	return r.next.Fetch(ctx, url)
}
