// Package publisher announces saved recipes to downstream consumers. Implementations live
// in the memory and pubsub subpackages; Mirror adapts any of them to the pipeline.
package publisher

import (
	"context"
	"fmt"

	"github.com/JakeFAU/recipe-harvester/internal/hash/sha256"
	"github.com/JakeFAU/recipe-harvester/internal/recipe"
)

// EventRecipeSaved is the event attribute attached to every announcement.
const EventRecipeSaved = "recipe.saved"

// Publisher sends one payload with string attributes and returns a message ID.
type Publisher interface {
	Publish(ctx context.Context, attrs map[string]string, payload any) (string, error)
}

// Mirror forwards saved records to a Publisher.
type Mirror struct {
	name string
	pub  Publisher
}

// NewMirror wraps pub. An empty name defaults to "publisher".
func NewMirror(name string, pub Publisher) (*Mirror, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if name == "" {
		name = "publisher"
	}
	return &Mirror{name: name, pub: pub}, nil
}

// Name identifies the mirror in logs.
func (m *Mirror) Name() string { return m.name }

// Save publishes rec as JSON with event, title and fingerprint attributes. Consumers can
// drop a message whose fingerprint matches the last one seen for the title.
func (m *Mirror) Save(ctx context.Context, rec recipe.Record) error {
	attrs := map[string]string{
		"event":       EventRecipeSaved,
		"title":       rec.Title,
		"fingerprint": Fingerprint(rec),
	}
	if _, err := m.pub.Publish(ctx, attrs, rec); err != nil {
		return fmt.Errorf("publish %q: %w", rec.Title, err)
	}
	return nil
}

// Fingerprint digests every column of rec in CSV order.
func Fingerprint(rec recipe.Record) string {
	return sha256.Hash(rec.Values()...)
}
