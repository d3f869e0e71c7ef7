package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

type poolLimits struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
}

// SQLite keeps its connections for the life of the process; Postgres
// connections are recycled so failovers are picked up.
var pools = map[string]poolLimits{
	DriverSQLite:   {maxOpen: 8, maxIdle: 8},
	DriverPostgres: {maxOpen: 25, maxIdle: 5, maxLifetime: 5 * time.Minute},
}

// connectAttempts bounds how long Init waits for a database that is still
// starting, e.g. a Postgres container launched alongside the server.
const connectAttempts = 5

func Init(ctx context.Context, driver, connection string) (*sqlx.DB, error) {
	limits, ok := pools[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if driver == DriverSQLite {
		err := ensureDataDir(connection)
		if err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Open(driver, connection)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(limits.maxOpen)
	db.SetMaxIdleConns(limits.maxIdle)
	db.SetConnMaxLifetime(limits.maxLifetime)

	err = ping(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	slog.Info("database connected", "driver", driver, "max_open", limits.maxOpen)
	return db, nil
}

func ping(ctx context.Context, db *sqlx.DB) error {
	wait := 500 * time.Millisecond
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}
		slog.Warn("database not ready, retrying", "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return fmt.Errorf("failed to ping database: %w", err)
}

// ensureDataDir creates the directory holding a file-backed SQLite database.
func ensureDataDir(connection string) error {
	path, _, _ := strings.Cut(connection, "?")
	path = strings.TrimPrefix(path, "file:")
	if path == "" || path == ":memory:" {
		return nil
	}

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

func Close(db *sqlx.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
