package fetcher

import "context"

// Observed reports the outcome of every fetch to a callback.
type Observed struct {
	next    Fetcher
	observe func(url string, size int, err error)
}

// NewObserved wraps next.
func NewObserved(next Fetcher, observe func(url string, size int, err error)) *Observed {
	return &Observed{next: next, observe: observe}
}

// Fetch delegates and reports.
func (o *Observed) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, err := o.next.Fetch(ctx, url)
	if o.observe != nil {
		o.observe(url, len(body), err)
	}
	return body, err
}
