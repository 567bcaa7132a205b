// Package database owns the PostgreSQL pool and the progression schema.
package database

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// schemaLockID serializes Migrate across replicas starting at once.
const schemaLockID int64 = 0x70726f67

// PoolOptions sizes the connection pool. Zero lifetimes use the defaults.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func (o PoolOptions) validate() error {
	if o.MaxConns < 1 {
		return fmt.Errorf("max conns must be at least 1, got %d", o.MaxConns)
	}
	if o.MinConns < 0 || o.MinConns > o.MaxConns {
		return fmt.Errorf("min conns must be in [0, %d], got %d", o.MaxConns, o.MinConns)
	}
	return nil
}

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// ParseURL validates a PostgreSQL connection URL.
func ParseURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// Connect opens a pool and pings it.
func Connect(ctx context.Context, url string, opts PoolOptions) (*DB, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	cfg, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = int32(opts.MaxConns)
	cfg.MinConns = int32(opts.MinConns)
	cfg.MaxConnLifetime = 30 * time.Minute
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Migrate applies the progression schema. Every statement is idempotent, and
// an advisory lock keeps concurrent callers from interleaving.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", schemaLockID); err != nil {
			return fmt.Errorf("acquiring schema lock: %w", err)
		}
		if _, err := tx.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	return nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

// HealthCheck pings the pool and confirms the schema is in place.
func (db *DB) HealthCheck(ctx context.Context) error {
	var present bool
	if err := db.Pool.QueryRow(ctx, "SELECT to_regclass('learners') IS NOT NULL").Scan(&present); err != nil {
		return fmt.Errorf("querying schema: %w", err)
	}
	if !present {
		return fmt.Errorf("progression schema not applied")
	}
	return nil
}
