package pipeline

import (
	"context"
	"time"

	"github.com/JakeFAU/recipe-harvester/internal/recipe"
)

// Mirror receives every record the run saved. Mirror failures are logged and counted but
// never abort a run.
type Mirror interface {
	Name() string
	Save(ctx context.Context, rec recipe.Record) error
}

// Archiver copies a local backup somewhere durable and returns its location.
type Archiver interface {
	Archive(ctx context.Context, backupPath string) (string, error)
}

// IDGenerator issues run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock supplies event timestamps.
type Clock interface {
	Now() time.Time
}
