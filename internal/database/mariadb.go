// Package database owns the process-wide MariaDB and Redis connections:
// opening them, verifying they are alive, applying schema migrations, and
// tuning the SQL pool. Everything else receives the handles by injection.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Registers the "mysql" driver with database/sql.
	_ "github.com/go-sql-driver/mysql"

	"github.com/solariq/solariq/internal/config"
)

// pingTimeout bounds each individual connectivity probe.
const pingTimeout = 5 * time.Second

// pingAttempts is how many times startup waits for the database before
// giving up. With doubling backoff capped at 30s this covers a slow
// compose cold-start comfortably.
const pingAttempts = 10

// NewMariaDB opens the user-store connection pool and blocks until the
// database answers a ping. The database container often comes up after the
// app container, so instead of failing fast the pool retries with backoff.
func NewMariaDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb pool: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := waitForPing(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// waitForPing probes the database until it responds or the attempt budget
// runs out.
func waitForPing(db *sql.DB) error {
	delay := time.Second
	var lastErr error

	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		lastErr = db.PingContext(ctx)
		cancel()

		if lastErr == nil {
			return nil
		}
		if attempt == pingAttempts {
			return fmt.Errorf("mariadb unreachable after %d attempts: %w", pingAttempts, lastErr)
		}

		slog.Warn("waiting for mariadb",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", delay),
			slog.Any("error", lastErr),
		)
		time.Sleep(delay)
		if delay *= 2; delay > 30*time.Second {
			delay = 30 * time.Second
		}
	}
}
