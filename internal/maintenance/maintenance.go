// Package maintenance rewrites an existing recipe store in place: refreshing proxied image
// parameters and retagging dietary labels. Every rewrite is preceded by a backup.
package maintenance

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-harvester/internal/imageurl"
	"github.com/JakeFAU/recipe-harvester/internal/recipe"
	"github.com/JakeFAU/recipe-harvester/internal/store/csvstore"
)

// ErrMissingStore is returned when there is no store file to rewrite.
var ErrMissingStore = errors.New("store does not exist")

// Table is the part of csvstore.Store a rewrite needs.
type Table interface {
	Path() string
	Backup() (string, error)
	Restore(backupPath string) error
	Rewrite(fn func([]csvstore.Row) []csvstore.Row) (int, error)
}

// Edit mutates one row in place and reports whether it changed anything.
type Edit func(row csvstore.Row) bool

// Result describes a finished rewrite.
type Result struct {
	BackupPath string
	Rows       int
	Changed    int
}

// Apply backs up t, then runs edit over every row and writes the table back.
// If the write fails the backup is restored.
func Apply(t Table, edit Edit, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	backup, err := t.Backup()
	if err != nil {
		return Result{}, fmt.Errorf("backup before rewrite: %w", err)
	}
	if backup == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrMissingStore, t.Path())
	}

	res := Result{BackupPath: backup}
	rows, err := t.Rewrite(func(rows []csvstore.Row) []csvstore.Row {
		for _, row := range rows {
			if edit(row) {
				res.Changed++
			}
		}
		return rows
	})
	if err != nil {
		if rerr := t.Restore(backup); rerr != nil {
			return res, errors.Join(err, fmt.Errorf("restore %s: %w", backup, rerr))
		}
		return res, err
	}
	res.Rows = rows
	logger.Info("store rewritten",
		zap.String("path", t.Path()),
		zap.String("backup", backup),
		zap.Int("rows", res.Rows),
		zap.Int("changed", res.Changed),
	)
	return res, nil
}

// Reimage re-applies the CSV-update proxy parameters to image cells that already point
// at the proxy. Other URLs are left alone.
func Reimage(n *imageurl.Normalizer) Edit {
	if n == nil {
		n = imageurl.New(imageurl.Config{})
	}
	return func(row csvstore.Row) bool {
		changed := false
		for _, col := range []string{recipe.ColumnImage, recipe.ColumnChefImage} {
			v := row[col]
			if v == "" || !n.IsProxied(v) {
				continue
			}
			if nv := n.Normalize(v, imageurl.ModeCSVUpdate); nv != v {
				row[col] = nv
				changed = true
			}
		}
		return changed
	}
}

// DefaultTagKeyword and DefaultTagLabel are the tag command defaults.
const (
	DefaultTagKeyword = "pescatarian"
	DefaultTagLabel   = "Pescatarian"
)

// Tag sets the dietary label of rows whose description mentions keyword, ignoring case.
func Tag(keyword, label string) Edit {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	return func(row csvstore.Row) bool {
		if needle == "" || !strings.Contains(strings.ToLower(row[recipe.ColumnDescription]), needle) {
			return false
		}
		if row[recipe.ColumnDietaryRequirements] == label {
			return false
		}
		row[recipe.ColumnDietaryRequirements] = label
		return true
	}
}
