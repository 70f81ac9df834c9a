// Package storage persists classification history.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spherical/hs-classifier/internal/config"
	"github.com/spherical/hs-classifier/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store owns the database handle and its repositories.
type Store struct {
	db      *sql.DB
	driver  string
	History *HistoryRepository
}

// Open connects to the configured database and applies the schema.
// Driver "none" returns a nil store.
func Open(ctx context.Context, cfg config.StorageConfig) (*Store, error) {
	var (
		driverName string
		dsn        string
	)
	switch cfg.Driver {
	case "none", "":
		return nil, nil
	case "sqlite":
		driverName, dsn = "sqlite3", cfg.SQLite.Path
	case "postgres":
		driverName, dsn = "postgres", cfg.Postgres.DSN
	default:
		return nil, domain.StorageError(fmt.Sprintf("unknown storage driver %q", cfg.Driver), nil)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, domain.StorageError("open database", err)
	}

	switch cfg.Driver {
	case "sqlite":
		if cfg.SQLite.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.SQLite.MaxOpenConns)
		}
	case "postgres":
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, domain.StorageError("ping database", err)
	}

	if err := Migrate(ctx, db, cfg.Driver); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, driver: cfg.Driver, History: NewHistoryRepository(db)}, nil
}

// Migrate applies the schema for driver ("sqlite" or "postgres").
func Migrate(ctx context.Context, db DB, driver string) error {
	script, err := migrations.ReadFile("migrations/" + driver + ".sql")
	if err != nil {
		return domain.StorageError(fmt.Sprintf("no schema for driver %q", driver), err)
	}
	if _, err := db.ExecContext(ctx, string(script)); err != nil {
		return domain.StorageError("apply schema", err)
	}
	return nil
}

// Driver returns the configured driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
