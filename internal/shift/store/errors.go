package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/MrJamesThe3rd/caja/internal/shift"
)

// classify maps driver failures onto the ledger error kinds. A unique
// violation can only come from the one-open-shift-per-register index.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return &shift.Error{Kind: shift.ErrConflict, Reason: "register already has an open shift"}
	case isTransient(err):
		return fmt.Errorf("%w: %w", shift.ErrTransient, err)
	}

	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	return false
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"): // connection exception
			return true
		case pgErr.Code == "40001", // serialization_failure
			pgErr.Code == "40P01", // deadlock_detected
			pgErr.Code == "53300", // too_many_connections
			pgErr.Code == "57P01": // admin_shutdown
			return true
		}

		return false
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return true
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}
