// Package postgres provides a Postgres-backed product store.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/product-sitemap-crawler/internal/crawler"
)

const defaultTable = "products"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for product rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// ProductStore upserts product rows keyed by url.
type ProductStore struct {
	pool  execCloser
	table string
}

// NewProductStore connects to Postgres and makes sure the product table exists.
func NewProductStore(ctx context.Context, cfg Config) (*ProductStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
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
	store := &ProductStore{pool: pool, table: table}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewProductStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewProductStoreWithPool(pool execCloser, table string) (*ProductStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &ProductStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// EnsureSchema creates the product table when it is missing.
func (s *ProductStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	url TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	current_price TEXT NOT NULL,
	original_price TEXT NOT NULL DEFAULT '',
	description_main TEXT NOT NULL DEFAULT '',
	description_features TEXT NOT NULL DEFAULT '',
	description_dimensions TEXT NOT NULL DEFAULT ''
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Upsert inserts the product or overwrites every column of the row with the same url.
func (s *ProductStore) Upsert(ctx context.Context, p crawler.Product) error {
	if p.URL == "" {
		return fmt.Errorf("product url is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	url,
	title,
	current_price,
	original_price,
	description_main,
	description_features,
	description_dimensions
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (url) DO UPDATE SET
	title = EXCLUDED.title,
	current_price = EXCLUDED.current_price,
	original_price = EXCLUDED.original_price,
	description_main = EXCLUDED.description_main,
	description_features = EXCLUDED.description_features,
	description_dimensions = EXCLUDED.description_dimensions`, s.table)
	_, err := s.pool.Exec(ctx, query,
		p.URL,
		p.Title,
		p.CurrentPrice,
		p.OriginalPrice,
		p.Description.Main,
		p.Description.Features,
		p.Description.Dimensions,
	)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.URL, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *ProductStore) Close(context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
