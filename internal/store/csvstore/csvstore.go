// Package csvstore keeps recipe records in a CSV file keyed by title.
//
// Every field is quoted and the canonical columns always come first in their fixed order.
// Columns the store does not know about are carried through rewrites untouched. Whole-file
// writes go through a temp file in the same directory followed by a rename.
package csvstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-harvester/internal/clock/system"
	"github.com/JakeFAU/recipe-harvester/internal/recipe"
	"github.com/JakeFAU/recipe-harvester/internal/store"
)

// BackupTimeLayout is the timestamp layout embedded in backup names.
const BackupTimeLayout = "20060102_150405"

// Config locates the store.
type Config struct {
	Path string `mapstructure:"path"`
}

// Option customizes a Store.
type Option func(*Store)

// WithClock sets the clock used to name backups.
func WithClock(c store.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithBackupNamer replaces DefaultBackupName.
func WithBackupNamer(n store.BackupNamer) Option {
	return func(s *Store) {
		if n != nil {
			s.namer = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store is a CSV-backed store.Writer.
type Store struct {
	path   string
	clock  store.Clock
	namer  store.BackupNamer
	logger *zap.Logger
}

var _ store.Writer = (*Store)(nil)

// New returns a Store for cfg.Path. The file does not have to exist yet.
func New(cfg Config, opts ...Option) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("store path is required")
	}
	s := &Store{
		path:   cfg.Path,
		clock:  system.NewLocal(),
		namer:  DefaultBackupName,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// DefaultBackupName returns <base>_backup_<YYYYMMDD_HHMMSS><ext> next to storePath.
func DefaultBackupName(storePath string, now time.Time) string {
	ext := filepath.Ext(storePath)
	base := strings.TrimSuffix(storePath, ext)
	return base + "_backup_" + now.Format(BackupTimeLayout) + ext
}

// Upsert replaces every row titled rec.Title with rec, keeping the position and the extra
// cells of the first such row, or appends rec when no row matches.
func (s *Store) Upsert(rec recipe.Record) error {
	if strings.TrimSpace(rec.Title) == "" {
		return fmt.Errorf("upsert: title is required")
	}
	t, err := s.load()
	if err != nil {
		return fmt.Errorf("upsert %q: %w", rec.Title, err)
	}

	replaced := false
	rows := t.Rows[:0]
	for _, row := range t.Rows {
		if row[recipe.ColumnTitle] != rec.Title {
			rows = append(rows, row)
			continue
		}
		if replaced {
			continue
		}
		row.SetRecord(rec)
		rows = append(rows, row)
		replaced = true
	}
	if !replaced {
		rows = append(rows, RowFromRecord(rec))
	}
	t.Rows = rows

	if err := s.save(t); err != nil {
		return fmt.Errorf("upsert %q: %w", rec.Title, err)
	}
	s.logger.Debug("record upserted",
		zap.String("title", rec.Title),
		zap.Bool("replaced", replaced),
		zap.String("path", s.path),
	)
	return nil
}

// AppendBatch appends recs in order. A header is written first only when the file did not
// exist or was empty and writeHeaderIfNew is set.
func (s *Store) AppendBatch(recs []recipe.Record, writeHeaderIfNew bool) error {
	info, err := os.Stat(s.path)
	isNew := errors.Is(err, os.ErrNotExist) || (err == nil && info.Size() == 0)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("append batch: stat store: %w", err)
	}
	if err := ensureDir(s.path); err != nil {
		return fmt.Errorf("append batch: %w", err)
	}

	var buf bytes.Buffer
	w := newQuotedWriter(&buf)
	if isNew && writeHeaderIfNew {
		w.Write(recipe.Columns())
	}
	for _, rec := range recs {
		w.Write(rec.Values())
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("append batch: encode rows: %w", err)
	}

	// #nosec G304 -- the store path comes from operator configuration.
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("append batch: open store: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("append batch: write rows: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("append batch: close store: %w", err)
	}
	s.logger.Debug("records appended",
		zap.Int("count", len(recs)),
		zap.Bool("header", isNew && writeHeaderIfNew),
		zap.String("path", s.path),
	)
	return nil
}

// Backup copies the store to the path chosen by the backup namer. An existing backup is
// never overwritten: a taken name gets a numeric suffix (_1, _2, ...) before its
// extension. A missing store yields "" and no error.
func (s *Store) Backup() (string, error) {
	// #nosec G304 -- the store path comes from operator configuration.
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("backup: read store: %w", err)
	}
	dst, err := freeName(s.namer(s.path, s.clock.Now()))
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	if err := writeFileAtomic(dst, data); err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	s.logger.Info("store backed up", zap.String("path", s.path), zap.String("backup", dst))
	return dst, nil
}

// maxBackupSuffix bounds the search for a free backup name.
const maxBackupSuffix = 1000

// freeName returns path, or the first path_<n><ext> variant that does not exist yet.
func freeName(path string) (string, error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	candidate := path
	for n := 1; ; n++ {
		_, err := os.Lstat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		if n > maxBackupSuffix {
			return "", fmt.Errorf("no free backup name for %s", path)
		}
		candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
	}
}

// Restore atomically replaces the store with the contents of backupPath.
func (s *Store) Restore(backupPath string) error {
	if backupPath == "" {
		return fmt.Errorf("restore: backup path is required")
	}
	// #nosec G304 -- backup paths are produced by Backup.
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("restore: read backup: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	s.logger.Warn("store restored from backup", zap.String("path", s.path), zap.String("backup", backupPath))
	return nil
}

// ReadAll returns every row of the store. A missing store has no rows.
func (s *Store) ReadAll() ([]Row, error) {
	t, err := s.load()
	if err != nil {
		return nil, err
	}
	return t.Rows, nil
}

// Records returns the canonical fields of every row.
func (s *Store) Records() ([]recipe.Record, error) {
	rows, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]recipe.Record, len(rows))
	for i, row := range rows {
		out[i] = row.Record()
	}
	return out, nil
}

// Rewrite replaces the whole table with fn's result. It reports how many rows fn returned.
func (s *Store) Rewrite(fn func([]Row) []Row) (int, error) {
	t, err := s.load()
	if err != nil {
		return 0, fmt.Errorf("rewrite: %w", err)
	}
	t.Rows = fn(t.Rows)
	if err := s.save(t); err != nil {
		return 0, fmt.Errorf("rewrite: %w", err)
	}
	return len(t.Rows), nil
}

func (s *Store) load() (*table, error) {
	// #nosec G304 -- the store path comes from operator configuration.
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &table{Header: recipe.Columns()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	t, err := readTable(f)
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	return t, nil
}

func (s *Store) save(t *table) error {
	var buf bytes.Buffer
	if err := t.encode(&buf); err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	return writeFileAtomic(s.path, buf.Bytes())
}
