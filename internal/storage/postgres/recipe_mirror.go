// Package postgres mirrors saved recipes into a Postgres table.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/recipe-harvester/internal/recipe"
)

// DefaultTable is used when Config.Table is empty.
const DefaultTable = "recipes"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the connection pool and destination table.
type Config struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RecipeMirror upserts records keyed by title. The table needs a unique constraint on title:
//
//	CREATE TABLE recipes (
//	    title                text PRIMARY KEY,
//	    image                text NOT NULL,
//	    time                 text NOT NULL,
//	    chef_name            text NOT NULL,
//	    chef_image           text NOT NULL,
//	    description          text NOT NULL,
//	    dietary_requirements text NOT NULL,
//	    updated_at           timestamptz NOT NULL DEFAULT now()
//	);
type RecipeMirror struct {
	pool  execCloser
	table string
	query string
}

// New connects a pool using cfg.
func New(ctx context.Context, cfg Config) (*RecipeMirror, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newMirror(pool, table), nil
}

// NewWithPool builds a mirror over an existing pool.
func NewWithPool(pool execCloser, table string) (*RecipeMirror, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return newMirror(pool, name), nil
}

func newMirror(pool execCloser, table string) *RecipeMirror {
	return &RecipeMirror{
		pool:  pool,
		table: table,
		query: fmt.Sprintf(`
INSERT INTO %s (
	title,
	image,
	time,
	chef_name,
	chef_image,
	description,
	dietary_requirements,
	updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,now())
ON CONFLICT (title) DO UPDATE SET
	image = EXCLUDED.image,
	time = EXCLUDED.time,
	chef_name = EXCLUDED.chef_name,
	chef_image = EXCLUDED.chef_image,
	description = EXCLUDED.description,
	dietary_requirements = EXCLUDED.dietary_requirements,
	updated_at = now()`, table),
	}
}

func tableName(table string) (string, error) {
	if table == "" {
		return DefaultTable, nil
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Name identifies the mirror in logs.
func (m *RecipeMirror) Name() string { return "postgres" }

// Save upserts rec.
func (m *RecipeMirror) Save(ctx context.Context, rec recipe.Record) error {
	if m == nil || m.pool == nil {
		return fmt.Errorf("postgres mirror is not configured")
	}
	if rec.Title == "" {
		return fmt.Errorf("record title is required")
	}
	if _, err := m.pool.Exec(ctx, m.query,
		rec.Title,
		rec.Image,
		rec.Time,
		rec.ChefName,
		rec.ChefImage,
		rec.Description,
		rec.DietaryRequirements,
	); err != nil {
		return fmt.Errorf("upsert recipe %q into %s: %w", rec.Title, m.table, err)
	}
	return nil
}

// Close releases the pool.
func (m *RecipeMirror) Close() {
	if m == nil || m.pool == nil {
		return
	}
	m.pool.Close()
}
