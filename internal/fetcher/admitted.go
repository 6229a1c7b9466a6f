package fetcher

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotAllowed is returned for URLs the admission policy refuses. It is never retried.
var ErrNotAllowed = errors.New("url not allowed by fetch policy")

// Policy decides whether a URL may be fetched at all.
type Policy interface {
	AllowFetch(url string) bool
}

// Admitted consults a Policy before delegating.
type Admitted struct {
	next     Fetcher
	policy   Policy
	onReject func(url string)
}

// NewAdmitted wraps next. onReject may be nil.
func NewAdmitted(next Fetcher, policy Policy, onReject func(url string)) *Admitted {
	return &Admitted{next: next, policy: policy, onReject: onReject}
}

// Fetch refuses disallowed URLs without touching the network.
func (a *Admitted) Fetch(ctx context.Context, url string) ([]byte, error) {
	if a.policy != nil && !a.policy.AllowFetch(url) {
		if a.onReject != nil {
			a.onReject(url)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotAllowed, url)
	}
	return a.next.Fetch(ctx, url)
}
