// Package fetcher retrieves page markup. Transports live in subpackages; this package holds
// the interface and the retry and rate-limit decorators wrapped around them.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrExhausted is returned when every attempt to fetch a URL failed.
var ErrExhausted = errors.New("fetch attempts exhausted")

// Fetcher returns the markup of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Func adapts a function to Fetcher.
type Func func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Retryable reports whether err is worth another attempt. Cancellation, policy refusals and
// client errors other than 408 and 429 are final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNotAllowed) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusRequestTimeout, se.Code == http.StatusTooManyRequests:
			return true
		case se.Code >= 400 && se.Code < 500:
			return false
		}
	}
	return true
}
