// Package database opens the history store: PostgreSQL for postgres:// URLs,
// SQLite for everything else.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB wraps the GORM instance and, for PostgreSQL, a pgx pool used for health
// checks.
type DB struct {
	Pool *pgxpool.Pool
	GORM *gorm.DB
}

// IsPostgres reports whether url selects the PostgreSQL driver.
func IsPostgres(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// New opens the database and runs migrations for the given models.
func New(ctx context.Context, databaseURL string, migrate ...any) (*DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	db := &DB{}
	if IsPostgres(databaseURL) {
		// 1. pgx pool
		config, err := pgxpool.ParseConfig(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}

		pool, err := pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("create connection pool: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		db.Pool = pool

		// 2. GORM on the same URL
		gormDB, err := gorm.Open(postgres.Open(databaseURL), gormCfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("open gorm: %w", err)
		}
		db.GORM = gormDB
	} else {
		if err := ensureDir(databaseURL); err != nil {
			return nil, err
		}
		gormDB, err := gorm.Open(sqlite.Open(databaseURL), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.GORM = gormDB
	}

	if len(migrate) > 0 {
		if err := db.GORM.WithContext(ctx).AutoMigrate(migrate...); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return db, nil
}

// ensureDir creates the parent directory of a file-backed SQLite DSN.
func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	return nil
}

// Close releases the pool and the underlying sql.DB.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if sqlDB, err := db.GORM.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Ping checks if the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if db.Pool != nil {
		return db.Pool.Ping(ctx)
	}
	sqlDB, err := db.GORM.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
