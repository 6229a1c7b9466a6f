package fetcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Promoting fetches statically and repeats the fetch in a rendering transport when the
// static body does not satisfy the decide function.
type Promoting struct {
	static    Fetcher
	rendered  Fetcher
	promote   func(body []byte) bool
	onPromote func(url string)
	logger    *zap.Logger
}

// NewPromoting wraps static and rendered. onPromote may be nil.
func NewPromoting(static, rendered Fetcher, promote func([]byte) bool, onPromote func(url string), logger *zap.Logger) *Promoting {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Promoting{
		static:    static,
		rendered:  rendered,
		promote:   promote,
		onPromote: onPromote,
		logger:    logger,
	}
}

// Fetch returns the static body unless it needs rendering.
func (p *Promoting) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, err := p.static.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if p.rendered == nil || p.promote == nil || !p.promote(body) {
		return body, nil
	}
	p.logger.Debug("promoting fetch to headless", zap.String("url", url), zap.Int("static_bytes", len(body)))
	if p.onPromote != nil {
		p.onPromote(url)
	}
	rendered, err := p.rendered.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("headless fetch after static probe: %w", err)
	}
	return rendered, nil
}
