package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"

	// Reads *.up.sql / *.down.sql pairs from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations brings the schema up to the latest version from the SQL
// files under dir. golang-migrate records the applied version in the
// schema_migrations table, so running this on every boot is cheap and safe.
func RunMigrations(db *sql.DB, dir string) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return fmt.Errorf("wrapping db for migrations: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "mysql", driver)
	if err != nil {
		return fmt.Errorf("reading migrations from %s: %w", dir, err)
	}

	switch err := m.Up(); {
	case err == nil:
		version, dirty, _ := m.Version()
		slog.Info("schema migrated",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	case errors.Is(err, migrate.ErrNoChange):
		slog.Debug("schema already current")
	default:
		return fmt.Errorf("applying migrations: %w", err)
	}

	return nil
}
