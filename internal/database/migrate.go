package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies every pending migration for the driver. It opens its own
// connection because the migrate drivers close the handle they are given.
func Migrate(driver, dsn string) error {
	db, err := New(driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	var target migratedb.Driver

	switch driver {
	case DriverPostgres:
		target, err = pgx.WithInstance(db, &pgx.Config{})
	case DriverSQLite:
		target, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	}

	if err != nil {
		return fmt.Errorf("creating %s migration driver: %w", driver, err)
	}

	dir, err := fs.Sub(migrations, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}

	source, err := iofs.New(dir, ".")
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, target)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("no migrations to apply")

			return nil
		}

		return fmt.Errorf("migration up failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("getting migration version: %w", err)
	}

	slog.Info("migrations completed", "version", version, "dirty", dirty)

	return nil
}
