package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// DB wraps sql.DB for either the embedded sqlite store or Postgres via pgx.
type DB struct {
	Client *sql.DB
	Driver string
}

// NewDB opens the store, checks it answers and applies the schema.
// For sqlite, dsn is a file path; its directory is created if missing.
func NewDB(ctx context.Context, driver, dsn string) (*DB, error) {
	const op = "store.NewDB"

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite, "sqlite", "":
		driver = DriverSQLite
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("%s: mkdir %s: %w", op, dir, err)
			}
		}
		db, err = sql.Open(DriverSQLite, sqliteDSN(dsn))
		if err == nil {
			// sqlite serializes writers; one connection avoids SQLITE_BUSY between our own statements.
			db.SetMaxOpenConns(1)
		}
	case DriverPostgres, "postgres":
		driver = DriverPostgres
		db, err = sql.Open(DriverPostgres, dsn)
		if err == nil {
			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(time.Hour)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported driver %q", op, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", op, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}
	if err := migrate(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", op, err)
	}
	return &DB{Client: db, Driver: driver}, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_journal_mode=WAL&_busy_timeout=5000"
}

// Healthy verifies the store still answers.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
