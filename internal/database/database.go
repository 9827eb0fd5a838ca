package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// New opens and pings a connection pool for the given driver. SQLite pools
// are limited to one connection; the register lock is the write lock.
func New(driver, dsn string) (*sql.DB, error) {
	name, err := sqlDriverName(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, fmt.Errorf("pinging database: %w", err)
	}

	switch driver {
	case DriverSQLite:
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	return db, nil
}

func sqlDriverName(driver string) (string, error) {
	switch driver {
	case DriverPostgres:
		return "pgx", nil
	case DriverSQLite:
		return "sqlite3", nil
	}

	return "", fmt.Errorf("unsupported database driver %q", driver)
}
