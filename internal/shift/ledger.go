package shift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=ledger.go -destination=repository_mock.go -package=shift
type Repository interface {
	// WithinRegister runs fn in a single store transaction that holds the
	// register's exclusive lock. Either everything fn wrote is committed or
	// nothing is.
	WithinRegister(ctx context.Context, registerID string, fn func(tx Tx) error) error

	GetShift(ctx context.Context, id uuid.UUID) (*Shift, error)
	// FindOpen returns nil, nil when the register has no open shift.
	FindOpen(ctx context.Context, registerID string) (*Shift, error)
	ListClosed(ctx context.Context, filter ClosedFilter) ([]*Shift, error)
	ListMovements(ctx context.Context, shiftID uuid.UUID) ([]*Movement, error)
}

// Tx is the register-locked view of the store handed to WithinRegister.
type Tx interface {
	FindOpen(ctx context.Context) (*Shift, error)
	GetShift(ctx context.Context, id uuid.UUID) (*Shift, error)
	SaveShift(ctx context.Context, s *Shift) error

	GetMovement(ctx context.Context, id uuid.UUID) (*Movement, error)
	ListMovements(ctx context.Context, shiftID uuid.UUID) ([]*Movement, error)
	SaveMovement(ctx context.Context, m *Movement) error
	DeleteMovement(ctx context.Context, id uuid.UUID) error
}

type ClosedFilter struct {
	RegisterID string
	From       *time.Time
	To         *time.Time
}

// Ledger owns the open/record/close lifecycle of the register's shifts.
type Ledger struct {
	repo       Repository
	registerID string
	now        func() time.Time

	// mu serialises mutations issued through this process; the repository
	// lock covers other processes.
	mu sync.Mutex
}

type Option func(*Ledger)

func WithRegister(id string) Option {
	return func(l *Ledger) {
		if id != "" {
			l.registerID = id
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(repo Repository, opts ...Option) *Ledger {
	l := &Ledger{
		repo:       repo,
		registerID: DefaultRegisterID,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *Ledger) RegisterID() string {
	return l.registerID
}

func (l *Ledger) clock() time.Time {
	return l.now().UTC().Truncate(time.Microsecond)
}

type OpenParams struct {
	OpeningFloat int64
	Operator     string
}

func (l *Ledger) Open(ctx context.Context, params OpenParams) (*Shift, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var opened *Shift

	// Built once so a unit re-run after a lost commit reply finds its own shift.
	s := &Shift{
		ID:           uuid.New(),
		RegisterID:   l.registerID,
		Status:       StatusOpen,
		Operator:     strings.TrimSpace(params.Operator),
		OpenedAt:     l.clock(),
		OpeningFloat: params.OpeningFloat,
	}

	err := l.repo.WithinRegister(ctx, l.registerID, func(tx Tx) error {
		current, err := tx.FindOpen(ctx)
		if err != nil {
			return fmt.Errorf("finding open shift: %w", err)
		}

		if current != nil && current.ID == s.ID {
			opened = current
			return nil
		}

		if current != nil {
			return newError(ErrConflict, "shift %s is already open since %s",
				current.ID, current.OpenedAt.Format(time.DateTime))
		}

		if s.Operator == "" {
			return newError(ErrValidation, "operator is required")
		}

		if s.OpeningFloat < 0 {
			return newError(ErrValidation, "opening float cannot be negative")
		}

		if err := tx.SaveShift(ctx, s); err != nil {
			return fmt.Errorf("saving shift: %w", err)
		}

		opened = s

		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("shift opened",
		"shift_id", opened.ID, "register", opened.RegisterID,
		"operator", opened.Operator, "opening_float", opened.OpeningFloat)

	return opened, nil
}

type RecordParams struct {
	// ShiftID, when set, must name the open shift. Clients send it to avoid
	// recording against a shift that was closed from another session.
	ShiftID       *uuid.UUID
	Type          Type
	Amount        int64
	PaymentMethod PaymentMethod
	Category      Category
	Description   string
	RecordedBy    string
}

func (l *Ledger) Record(ctx context.Context, params RecordParams) (*Movement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var recorded *Movement

	// The id and timestamps are fixed before the unit runs: a re-run after a
	// lost commit reply upserts the same row instead of adding a second one.
	now := l.clock()
	m := &Movement{
		ID:            uuid.New(),
		Type:          params.Type,
		Amount:        params.Amount,
		PaymentMethod: params.PaymentMethod,
		Category:      params.Category,
		Description:   strings.TrimSpace(params.Description),
		RecordedBy:    strings.TrimSpace(params.RecordedBy),
		OccurredAt:    now,
		CreatedAt:     now,
	}
	applyMovementDefaults(m)

	attempted := false

	err := l.repo.WithinRegister(ctx, l.registerID, func(tx Tx) error {
		if attempted {
			prev, err := tx.GetMovement(ctx, m.ID)
			if err == nil {
				recorded = prev
				return nil
			}

			if !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("getting movement %s: %w", m.ID, err)
			}
		}

		attempted = true

		current, err := tx.FindOpen(ctx)
		if err != nil {
			return fmt.Errorf("finding open shift: %w", err)
		}

		if current == nil {
			return newError(ErrPrecondition, "no open shift on register %s", l.registerID)
		}

		if params.ShiftID != nil && *params.ShiftID != current.ID {
			return newError(ErrPrecondition, "shift %s is not the open shift", *params.ShiftID)
		}

		m.ShiftID = current.ID

		if err := validateMovement(m); err != nil {
			return err
		}

		if err := tx.SaveMovement(ctx, m); err != nil {
			return fmt.Errorf("saving movement: %w", err)
		}

		recorded = m

		return nil
	})
	if err != nil {
		return nil, err
	}

	return recorded, nil
}

// MovementPatch holds the fields to change on a movement. Nil fields are kept.
type MovementPatch struct {
	Type          *Type
	Amount        *int64
	PaymentMethod *PaymentMethod
	Category      *Category
	Description   *string
}

func (p MovementPatch) apply(m *Movement) {
	if p.Type != nil {
		m.Type = *p.Type
	}

	if p.Amount != nil {
		m.Amount = *p.Amount
	}

	if p.PaymentMethod != nil {
		m.PaymentMethod = *p.PaymentMethod
	}

	if p.Category != nil {
		m.Category = *p.Category
	}

	if p.Description != nil {
		m.Description = strings.TrimSpace(*p.Description)
	}
}

func (l *Ledger) EditMovement(ctx context.Context, id uuid.UUID, patch MovementPatch) (*Movement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var edited *Movement

	at := l.clock()

	err := l.repo.WithinRegister(ctx, l.registerID, func(tx Tx) error {
		m, err := l.editableMovement(ctx, tx, id)
		if err != nil {
			return err
		}

		patch.apply(m)

		if err := validateMovement(m); err != nil {
			return err
		}

		m.UpdatedAt = new(at)

		if err := tx.SaveMovement(ctx, m); err != nil {
			return fmt.Errorf("saving movement: %w", err)
		}

		edited = m

		return nil
	})
	if err != nil {
		return nil, err
	}

	return edited, nil
}

func (l *Ledger) DeleteMovement(ctx context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	attempted := false

	return l.repo.WithinRegister(ctx, l.registerID, func(tx Tx) error {
		rerun := attempted
		attempted = true

		if _, err := l.editableMovement(ctx, tx, id); err != nil {
			// A re-run that no longer finds the movement means the first
			// attempt committed.
			if rerun && errors.Is(err, ErrNotFound) {
				return nil
			}

			return err
		}

		if err := tx.DeleteMovement(ctx, id); err != nil {
			return fmt.Errorf("deleting movement: %w", err)
		}

		return nil
	})
}

// editableMovement loads a movement and checks that it belongs to the open
// shift of this ledger's register. The unit of work only holds this
// register's lock, so movements of other registers are out of reach.
func (l *Ledger) editableMovement(ctx context.Context, tx Tx, id uuid.UUID) (*Movement, error) {
	m, err := tx.GetMovement(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting movement %s: %w", id, err)
	}

	owner, err := tx.GetShift(ctx, m.ShiftID)
	if err != nil {
		return nil, fmt.Errorf("getting shift %s: %w", m.ShiftID, err)
	}

	if owner.RegisterID != l.registerID {
		return nil, newError(ErrForbidden, "movement %s belongs to register %s", id, owner.RegisterID)
	}

	if !owner.IsOpen() {
		return nil, newError(ErrForbidden, "movement %s belongs to closed shift %s", id, owner.ID)
	}

	return m, nil
}

type CloseParams struct {
	CountedCash  int64
	Observations string
	// ClosedBy defaults to the operator who opened the shift.
	ClosedBy string
}

// Close reconciles the open shift against the counted cash and freezes it.
// The movement snapshot, the variance and the status flip are committed in
// one register-locked transaction.
func (l *Ledger) Close(ctx context.Context, params CloseParams) (ClosedSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		closed *Shift
		target uuid.UUID
	)

	at := l.clock()

	err := l.repo.WithinRegister(ctx, l.registerID, func(tx Tx) error {
		// On a re-run, the shift picked by the first attempt may already be
		// closed with this very close.
		if target != uuid.Nil {
			prev, err := tx.GetShift(ctx, target)
			if err != nil {
				return fmt.Errorf("getting shift %s: %w", target, err)
			}

			if closedWith(prev, params, at) {
				closed = prev
				return nil
			}

			if !prev.IsOpen() {
				return newError(ErrPrecondition, "shift %s was closed by another session", target)
			}
		}

		current, err := tx.FindOpen(ctx)
		if err != nil {
			return fmt.Errorf("finding open shift: %w", err)
		}

		if current == nil {
			return newError(ErrPrecondition, "no open shift on register %s", l.registerID)
		}

		target = current.ID

		if params.CountedCash < 0 {
			return newError(ErrValidation, "counted cash cannot be negative")
		}

		movements, err := tx.ListMovements(ctx, current.ID)
		if err != nil {
			return fmt.Errorf("listing movements: %w", err)
		}

		s := *current
		finalize(&s, movements, params, at)

		if err := tx.SaveShift(ctx, &s); err != nil {
			return fmt.Errorf("saving shift: %w", err)
		}

		closed = &s

		return nil
	})
	if err != nil {
		return ClosedSummary{}, err
	}

	summary, _ := SummaryOf(closed)

	slog.Info("shift closed",
		"shift_id", summary.ShiftID, "register", summary.RegisterID,
		"expected_cash", summary.ExpectedCash, "counted_cash", summary.CountedCash,
		"variance", summary.Variance, "kind", summary.VarianceKind())

	return summary, nil
}

// closedWith reports whether s was closed by a Close call with params at at.
func closedWith(s *Shift, params CloseParams, at time.Time) bool {
	return !s.IsOpen() &&
		s.ClosedAt != nil && s.ClosedAt.Equal(at) &&
		s.CountedCash != nil && *s.CountedCash == params.CountedCash
}

func finalize(s *Shift, movements []*Movement, params CloseParams, at time.Time) {
	totals := Summarize(movements)
	expected := ExpectedCash(s.OpeningFloat, movements)

	closedBy := strings.TrimSpace(params.ClosedBy)
	if closedBy == "" {
		closedBy = s.Operator
	}

	s.Status = StatusClosed
	s.ClosedAt = &at
	s.ClosedBy = &closedBy
	s.CountedCash = new(params.CountedCash)
	s.ExpectedCash = &expected
	s.Variance = new(params.CountedCash - expected)
	s.CashIncome = new(totals.Cash.Income)
	s.CashExpense = new(totals.Cash.Expense)
	s.MovementCount = new(totals.MovementCount)
	s.IncomeCount = new(totals.IncomeCount)
	s.ExpenseCount = new(totals.ExpenseCount)
	s.Observations = strings.TrimSpace(params.Observations)
}

// ActiveShift is the live view of the open shift.
type ActiveShift struct {
	Shift        *Shift
	Movements    []*Movement
	ExpectedCash int64
	Totals       Totals
}

// Active returns the open shift with a live reconciliation estimate, or nil
// if the register has no open shift.
func (l *Ledger) Active(ctx context.Context) (*ActiveShift, error) {
	current, err := l.repo.FindOpen(ctx, l.registerID)
	if err != nil {
		return nil, fmt.Errorf("finding open shift: %w", err)
	}

	if current == nil {
		return nil, nil
	}

	movements, err := l.repo.ListMovements(ctx, current.ID)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}

	return &ActiveShift{
		Shift:        current,
		Movements:    movements,
		ExpectedCash: ExpectedCash(current.OpeningFloat, movements),
		Totals:       Summarize(movements),
	}, nil
}

// ExpectedCash is the live drawer estimate for the open shift.
func (l *Ledger) ExpectedCash(ctx context.Context) (int64, error) {
	active, err := l.Active(ctx)
	if err != nil {
		return 0, err
	}

	if active == nil {
		return 0, newError(ErrPrecondition, "no open shift on register %s", l.registerID)
	}

	return active.ExpectedCash, nil
}

// Movements lists the open shift's movements matching filter.
func (l *Ledger) Movements(ctx context.Context, filter MovementFilter) ([]*Movement, error) {
	active, err := l.Active(ctx)
	if err != nil {
		return nil, err
	}

	if active == nil {
		return nil, newError(ErrPrecondition, "no open shift on register %s", l.registerID)
	}

	return filterMovements(active.Movements, filter), nil
}

func applyMovementDefaults(m *Movement) {
	if m.PaymentMethod == "" {
		m.PaymentMethod = PaymentCash
	}

	if m.Category == "" {
		m.Category = CategoryServices
	}
}

func validateMovement(m *Movement) error {
	if !m.Type.IsValid() {
		return newError(ErrValidation, "invalid movement type %q", m.Type)
	}

	if m.Amount <= 0 {
		return newError(ErrValidation, "amount must be greater than zero")
	}

	if !m.PaymentMethod.IsValid() {
		return newError(ErrValidation, "invalid payment method %q", m.PaymentMethod)
	}

	if !m.Category.IsValid() {
		return newError(ErrValidation, "invalid category %q", m.Category)
	}

	if m.Description == "" {
		return newError(ErrValidation, "description is required")
	}

	return nil
}
