package store

import (
	"time"

	"github.com/JakeFAU/recipe-harvester/internal/recipe"
)

// Clock supplies the time used to name backups.
type Clock interface {
	Now() time.Time
}

// BackupNamer derives the backup path for a store path at a given time.
type BackupNamer func(storePath string, now time.Time) string

// Writer is the durable recipe table.
type Writer interface {
	// Upsert replaces the row with the record's title, or appends it.
	Upsert(rec recipe.Record) error
	// AppendBatch appends records without de-duplication. The header is written only when
	// the store is new and writeHeaderIfNew is set.
	AppendBatch(recs []recipe.Record, writeHeaderIfNew bool) error
	// Backup copies the store to a sibling path and returns it, or "" when there is
	// nothing to back up.
	Backup() (string, error)
	// Restore replaces the store with the bytes of backupPath.
	Restore(backupPath string) error
	// Path is the store location.
	Path() string
}
