package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caja/internal/shift"
)

// Dialect selects the SQL flavour spoken by the underlying database.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type Store struct {
	db      *sql.DB
	dialect Dialect
	retry   RetryPolicy
}

type Option func(*Store)

func WithRetry(p RetryPolicy) Option {
	return func(s *Store) { s.retry = p }
}

func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: dialect,
		retry:   DefaultRetryPolicy(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithinRegister runs fn in a transaction holding the register lock. On
// Postgres the lock is a transaction-scoped advisory lock; SQLite connections
// are opened with _txlock=immediate so BEGIN already takes the write lock.
// Transient failures re-run the whole unit, including after a failed commit
// whose outcome is unknown, so fn must be safe to run again.
func (s *Store) WithinRegister(ctx context.Context, registerID string, fn func(tx shift.Tx) error) error {
	return s.withRetry(ctx, func() error {
		return s.withinRegister(ctx, registerID, fn)
	})
}

func (s *Store) withinRegister(ctx context.Context, registerID string, fn func(tx shift.Tx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("beginning transaction: %w", err))
	}
	defer dbTx.Rollback()

	if s.dialect == DialectPostgres {
		if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", registerLockKey(registerID)); err != nil {
			return classify(fmt.Errorf("acquiring register lock: %w", err))
		}
	}

	if err := fn(&registerTx{tx: dbTx, registerID: registerID}); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return classify(fmt.Errorf("committing transaction: %w", err))
	}

	return nil
}

func registerLockKey(registerID string) int64 {
	h := fnv.New64a()
	h.Write([]byte("caja-register"))
	h.Write([]byte{0})
	h.Write([]byte(registerID))

	return int64(h.Sum64())
}

func (s *Store) GetShift(ctx context.Context, id uuid.UUID) (*shift.Shift, error) {
	var out *shift.Shift

	err := s.withRetry(ctx, func() error {
		var err error
		out, err = getShift(ctx, s.db, id)

		return err
	})

	return out, err
}

func (s *Store) FindOpen(ctx context.Context, registerID string) (*shift.Shift, error) {
	var out *shift.Shift

	err := s.withRetry(ctx, func() error {
		var err error
		out, err = findOpen(ctx, s.db, registerID)

		return err
	})

	return out, err
}

func (s *Store) ListClosed(ctx context.Context, filter shift.ClosedFilter) ([]*shift.Shift, error) {
	var out []*shift.Shift

	err := s.withRetry(ctx, func() error {
		var err error
		out, err = listClosed(ctx, s.db, filter)

		return err
	})

	return out, err
}

func (s *Store) ListMovements(ctx context.Context, shiftID uuid.UUID) ([]*shift.Movement, error) {
	var out []*shift.Movement

	err := s.withRetry(ctx, func() error {
		var err error
		out, err = listMovements(ctx, s.db, shiftID)

		return err
	})

	return out, err
}

type registerTx struct {
	tx         *sql.Tx
	registerID string
}

func (t *registerTx) FindOpen(ctx context.Context) (*shift.Shift, error) {
	return findOpen(ctx, t.tx, t.registerID)
}

func (t *registerTx) GetShift(ctx context.Context, id uuid.UUID) (*shift.Shift, error) {
	return getShift(ctx, t.tx, id)
}

func (t *registerTx) SaveShift(ctx context.Context, s *shift.Shift) error {
	return saveShift(ctx, t.tx, s)
}

func (t *registerTx) GetMovement(ctx context.Context, id uuid.UUID) (*shift.Movement, error) {
	return getMovement(ctx, t.tx, id)
}

func (t *registerTx) ListMovements(ctx context.Context, shiftID uuid.UUID) ([]*shift.Movement, error) {
	return listMovements(ctx, t.tx, shiftID)
}

func (t *registerTx) SaveMovement(ctx context.Context, m *shift.Movement) error {
	return saveMovement(ctx, t.tx, m)
}

func (t *registerTx) DeleteMovement(ctx context.Context, id uuid.UUID) error {
	return deleteMovement(ctx, t.tx, id)
}
