// Package postgres implements the database store port over PostgreSQL
// with pgvector columns.
package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql (needed by goose)
	"github.com/pressly/goose/v3"

	"github.com/Gladowsky-Labs/brane/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// NewPool creates a pgxpool connection pool from a config.Postgres struct.
func NewPool(ctx context.Context, cfg config.Postgres) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheck

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

// RunMigrations applies all pending goose migrations from the embedded SQL files.
func RunMigrations(ctx context.Context, dsn string) error {
	goose.SetBaseFS(migrations)

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// CheckVectorDimensions verifies that the embedding columns match the
// configured embedding dimensionality. A mismatch is a fatal configuration
// error: the service must refuse to start rather than fail on first use.
func CheckVectorDimensions(ctx context.Context, pool *pgxpool.Pool, want int) error {
	for _, table := range []string{"memories", "events"} {
		var dims int
		err := pool.QueryRow(ctx,
			`SELECT atttypmod FROM pg_attribute
			 WHERE attrelid = $1::regclass AND attname = 'embedding'`, table,
		).Scan(&dims)
		if err != nil {
			return fmt.Errorf("probe %s.embedding: %w", table, err)
		}
		if dims != want {
			return fmt.Errorf("%s.embedding has %d dimensions, config expects %d", table, dims, want)
		}
	}
	return nil
}
