package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caja/internal/shift"
)

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectShiftColumns = `
	id, register_id, status, operator, opened_at, opening_float,
	closed_at, closed_by, counted_cash, expected_cash, variance,
	cash_income, cash_expense, movement_count, income_count, expense_count, observations
`

// scanShift reads a shift row in selectShiftColumns order.
func scanShift(s scanner) (*shift.Shift, error) {
	var sh shift.Shift

	var statusStr string

	if err := s.Scan(
		&sh.ID, &sh.RegisterID, &statusStr, &sh.Operator, &sh.OpenedAt, &sh.OpeningFloat,
		&sh.ClosedAt, &sh.ClosedBy, &sh.CountedCash, &sh.ExpectedCash, &sh.Variance,
		&sh.CashIncome, &sh.CashExpense, &sh.MovementCount, &sh.IncomeCount, &sh.ExpenseCount,
		&sh.Observations,
	); err != nil {
		return nil, err
	}

	sh.Status = shift.Status(statusStr)
	sh.OpenedAt = sh.OpenedAt.UTC()

	if sh.ClosedAt != nil {
		sh.ClosedAt = new(sh.ClosedAt.UTC())
	}

	return &sh, nil
}

const selectMovementColumns = `
	id, shift_id, type, amount, payment_method, category, description,
	recorded_by, occurred_at, created_at, updated_at
`

// scanMovement reads a movement row in selectMovementColumns order.
func scanMovement(s scanner) (*shift.Movement, error) {
	var m shift.Movement

	var typeStr, methodStr, categoryStr string

	if err := s.Scan(
		&m.ID, &m.ShiftID, &typeStr, &m.Amount, &methodStr, &categoryStr, &m.Description,
		&m.RecordedBy, &m.OccurredAt, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}

	m.Type = shift.Type(typeStr)
	m.PaymentMethod = shift.PaymentMethod(methodStr)
	m.Category = shift.Category(categoryStr)
	m.OccurredAt = m.OccurredAt.UTC()
	m.CreatedAt = m.CreatedAt.UTC()

	if m.UpdatedAt != nil {
		m.UpdatedAt = new(m.UpdatedAt.UTC())
	}

	return &m, nil
}

func getShift(ctx context.Context, q querier, id uuid.UUID) (*shift.Shift, error) {
	query := `SELECT ` + selectShiftColumns + ` FROM shifts WHERE id = $1`

	sh, err := scanShift(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &shift.Error{Kind: shift.ErrNotFound, Reason: fmt.Sprintf("shift %s not found", id)}
		}

		return nil, classify(fmt.Errorf("getting shift: %w", err))
	}

	return sh, nil
}

func findOpen(ctx context.Context, q querier, registerID string) (*shift.Shift, error) {
	query := `SELECT ` + selectShiftColumns + ` FROM shifts WHERE register_id = $1 AND status = $2`

	sh, err := scanShift(q.QueryRowContext(ctx, query, registerID, shift.StatusOpen))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, classify(fmt.Errorf("finding open shift: %w", err))
	}

	return sh, nil
}

func listClosed(ctx context.Context, q querier, filter shift.ClosedFilter) ([]*shift.Shift, error) {
	query := `SELECT ` + selectShiftColumns + ` FROM shifts WHERE status = $1`

	args := []any{shift.StatusClosed}
	argIdx := 2

	if filter.RegisterID != "" {
		query += fmt.Sprintf(" AND register_id = $%d", argIdx)

		args = append(args, filter.RegisterID)
		argIdx++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND closed_at >= $%d", argIdx)

		args = append(args, filter.From.UTC())
		argIdx++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND closed_at <= $%d", argIdx)

		args = append(args, filter.To.UTC())
	}

	query += " ORDER BY closed_at DESC, id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("listing closed shifts: %w", err))
	}
	defer rows.Close()

	var shifts []*shift.Shift

	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning shift: %w", err)
		}

		shifts = append(shifts, sh)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterating shifts: %w", err))
	}

	return shifts, nil
}

// saveShift inserts a new shift or updates an open one. Closed rows are
// never rewritten: the update is guarded on the stored status.
func saveShift(ctx context.Context, q querier, s *shift.Shift) error {
	query := `
		INSERT INTO shifts (
			id, register_id, status, operator, opened_at, opening_float,
			closed_at, closed_by, counted_cash, expected_cash, variance,
			cash_income, cash_expense, movement_count, income_count, expense_count, observations
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			closed_at = excluded.closed_at,
			closed_by = excluded.closed_by,
			counted_cash = excluded.counted_cash,
			expected_cash = excluded.expected_cash,
			variance = excluded.variance,
			cash_income = excluded.cash_income,
			cash_expense = excluded.cash_expense,
			movement_count = excluded.movement_count,
			income_count = excluded.income_count,
			expense_count = excluded.expense_count,
			observations = excluded.observations
		WHERE shifts.status = 'open'
	`

	res, err := q.ExecContext(ctx, query,
		s.ID, s.RegisterID, s.Status, s.Operator, s.OpenedAt, s.OpeningFloat,
		s.ClosedAt, s.ClosedBy, s.CountedCash, s.ExpectedCash, s.Variance,
		s.CashIncome, s.CashExpense, s.MovementCount, s.IncomeCount, s.ExpenseCount, s.Observations,
	)
	if err != nil {
		return classify(fmt.Errorf("saving shift: %w", err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return classify(fmt.Errorf("saving shift: %w", err))
	}

	if n == 0 {
		return &shift.Error{Kind: shift.ErrForbidden, Reason: fmt.Sprintf("shift %s is closed", s.ID)}
	}

	return nil
}

func getMovement(ctx context.Context, q querier, id uuid.UUID) (*shift.Movement, error) {
	query := `SELECT ` + selectMovementColumns + ` FROM movements WHERE id = $1`

	m, err := scanMovement(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &shift.Error{Kind: shift.ErrNotFound, Reason: fmt.Sprintf("movement %s not found", id)}
		}

		return nil, classify(fmt.Errorf("getting movement: %w", err))
	}

	return m, nil
}

func listMovements(ctx context.Context, q querier, shiftID uuid.UUID) ([]*shift.Movement, error) {
	query := `SELECT ` + selectMovementColumns + `
		FROM movements
		WHERE shift_id = $1
		ORDER BY occurred_at ASC, created_at ASC, id`

	rows, err := q.QueryContext(ctx, query, shiftID)
	if err != nil {
		return nil, classify(fmt.Errorf("listing movements: %w", err))
	}
	defer rows.Close()

	movements := []*shift.Movement{}

	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}

		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterating movements: %w", err))
	}

	return movements, nil
}

func saveMovement(ctx context.Context, q querier, m *shift.Movement) error {
	query := `
		INSERT INTO movements (
			id, shift_id, type, amount, payment_method, category, description,
			recorded_by, occurred_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			type = excluded.type,
			amount = excluded.amount,
			payment_method = excluded.payment_method,
			category = excluded.category,
			description = excluded.description,
			updated_at = excluded.updated_at
	`

	_, err := q.ExecContext(ctx, query,
		m.ID, m.ShiftID, m.Type, m.Amount, m.PaymentMethod, m.Category, m.Description,
		m.RecordedBy, m.OccurredAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return classify(fmt.Errorf("saving movement: %w", err))
	}

	return nil
}

func deleteMovement(ctx context.Context, q querier, id uuid.UUID) error {
	res, err := q.ExecContext(ctx, `DELETE FROM movements WHERE id = $1`, id)
	if err != nil {
		return classify(fmt.Errorf("deleting movement: %w", err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return classify(fmt.Errorf("deleting movement: %w", err))
	}

	if n == 0 {
		return &shift.Error{Kind: shift.ErrNotFound, Reason: fmt.Sprintf("movement %s not found", id)}
	}

	return nil
}
