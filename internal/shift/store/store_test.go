package store_test

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/caja/internal/config"
	"github.com/MrJamesThe3rd/caja/internal/database"
	"github.com/MrJamesThe3rd/caja/internal/shift"
	"github.com/MrJamesThe3rd/caja/internal/shift/store"
)

func fastRetry() store.RetryPolicy {
	return store.RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func newSQLiteStore(t *testing.T) *store.Store {
	t.Helper()

	dsn := config.SQLiteDSN(filepath.Join(t.TempDir(), "caja.db"))
	require.NoError(t, database.Migrate(database.DriverSQLite, dsn))

	db, err := database.New(database.DriverSQLite, dsn)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return store.New(db, store.DialectSQLite, store.WithRetry(fastRetry()))
}

// runLifecycle drives one full shift through the ledger and checks every
// observable result along the way.
func runLifecycle(t *testing.T, repo shift.Repository) {
	t.Helper()

	ctx := context.Background()
	ledger := shift.NewLedger(repo)
	history := shift.NewHistory(repo, ledger.RegisterID())

	opened, err := ledger.Open(ctx, shift.OpenParams{OpeningFloat: 10000, Operator: "ana"})
	require.NoError(t, err)

	_, err = ledger.Open(ctx, shift.OpenParams{OpeningFloat: 5000, Operator: "beto"})
	require.ErrorIs(t, err, shift.ErrConflict)

	income, err := ledger.Record(ctx, shift.RecordParams{
		Type: shift.TypeIncome, Amount: 5000, PaymentMethod: shift.PaymentCash, Description: "Corte",
	})
	require.NoError(t, err)

	_, err = ledger.Record(ctx, shift.RecordParams{
		Type: shift.TypeExpense, Amount: 2000, PaymentMethod: shift.PaymentCash,
		Category: shift.CategoryExpenses, Description: "Insumos",
	})
	require.NoError(t, err)

	_, err = ledger.Record(ctx, shift.RecordParams{
		Type: shift.TypeIncome, Amount: 8000, PaymentMethod: shift.PaymentCard, Description: "Color",
	})
	require.NoError(t, err)

	_, err = ledger.Record(ctx, shift.RecordParams{Type: shift.TypeIncome, Amount: -5, Description: "x"})
	require.ErrorIs(t, err, shift.ErrValidation)

	expected, err := ledger.ExpectedCash(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(13000), expected)

	active, err := ledger.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, opened.ID, active.Shift.ID)
	assert.Len(t, active.Movements, 3)
	assert.Equal(t, int64(8000), active.Totals.Other.Income)

	summary, err := ledger.Close(ctx, shift.CloseParams{CountedCash: 12500})
	require.NoError(t, err)
	assert.Equal(t, int64(13000), summary.ExpectedCash)
	assert.Equal(t, int64(-500), summary.Variance)
	assert.Equal(t, "Faltante", summary.VarianceKind().Label())
	assert.Equal(t, 3, summary.MovementCount)

	_, err = ledger.Record(ctx, shift.RecordParams{Type: shift.TypeIncome, Amount: 100, Description: "late"})
	require.ErrorIs(t, err, shift.ErrPrecondition)

	_, err = ledger.Close(ctx, shift.CloseParams{CountedCash: 12500})
	require.ErrorIs(t, err, shift.ErrPrecondition)

	_, err = ledger.EditMovement(ctx, income.ID, shift.MovementPatch{Amount: new(int64(1))})
	require.ErrorIs(t, err, shift.ErrForbidden)

	require.ErrorIs(t, ledger.DeleteMovement(ctx, income.ID), shift.ErrForbidden)

	active, err = ledger.Active(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	list, err := history.List(ctx, shift.DateRange{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, summary, list[0])

	first, err := history.Detail(ctx, opened.ID)
	require.NoError(t, err)
	second, err := history.Detail(ctx, opened.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.False(t, first.Editable())
	assert.Equal(t, summary.ExpectedCash, shift.ExpectedCash(first.Shift.OpeningFloat, first.Movements))

	_, err = history.Detail(ctx, uuid.New())
	require.ErrorIs(t, err, shift.ErrNotFound)

	next, err := ledger.Open(ctx, shift.OpenParams{OpeningFloat: 12500, Operator: "beto"})
	require.NoError(t, err)
	assert.NotEqual(t, opened.ID, next.ID)
}

func TestStore_SQLite_Lifecycle(t *testing.T) {
	runLifecycle(t, newSQLiteStore(t))
}

func TestStore_SQLite_EditAndDelete(t *testing.T) {
	ctx := context.Background()
	ledger := shift.NewLedger(newSQLiteStore(t))

	_, err := ledger.Open(ctx, shift.OpenParams{OpeningFloat: 0, Operator: "ana"})
	require.NoError(t, err)

	m, err := ledger.Record(ctx, shift.RecordParams{Type: shift.TypeIncome, Amount: 5000, Description: "Corte"})
	require.NoError(t, err)

	edited, err := ledger.EditMovement(ctx, m.ID, shift.MovementPatch{
		Amount:        new(int64(6000)),
		PaymentMethod: new(shift.PaymentTransfer),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), edited.Amount)
	require.NotNil(t, edited.UpdatedAt)

	expected, err := ledger.ExpectedCash(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), expected)

	require.NoError(t, ledger.DeleteMovement(ctx, m.ID))
	require.ErrorIs(t, ledger.DeleteMovement(ctx, m.ID), shift.ErrNotFound)

	transfer := shift.PaymentTransfer
	got, err := ledger.Movements(ctx, shift.MovementFilter{PaymentMethod: &transfer})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_SQLite_OtherRegisterCannotTouchMovements(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteStore(t)
	home := shift.NewLedger(repo)
	front := shift.NewLedger(repo, shift.WithRegister("front"))

	_, err := home.Open(ctx, shift.OpenParams{OpeningFloat: 1000, Operator: "ana"})
	require.NoError(t, err)

	m, err := home.Record(ctx, shift.RecordParams{Type: shift.TypeIncome, Amount: 500, Description: "Corte"})
	require.NoError(t, err)

	_, err = front.EditMovement(ctx, m.ID, shift.MovementPatch{Amount: new(int64(1))})
	require.ErrorIs(t, err, shift.ErrForbidden)
	require.ErrorIs(t, front.DeleteMovement(ctx, m.ID), shift.ErrForbidden)

	// Same outcome once front has an open shift of its own.
	_, err = front.Open(ctx, shift.OpenParams{OpeningFloat: 0, Operator: "beto"})
	require.NoError(t, err)
	require.ErrorIs(t, front.DeleteMovement(ctx, m.ID), shift.ErrForbidden)

	expected, err := home.ExpectedCash(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), expected)
}

// cashEffect is what m adds to the drawer.
func cashEffect(m *shift.Movement) int64 {
	switch {
	case m.PaymentMethod != shift.PaymentCash:
		return 0
	case m.Type == shift.TypeIncome:
		return m.Amount
	default:
		return -m.Amount
	}
}

func TestStore_SQLite_RandomRecordStream(t *testing.T) {
	ctx := context.Background()
	r := rand.New(rand.NewPCG(20261019, 11))
	ledger := shift.NewLedger(newSQLiteStore(t))

	const opening = 25000

	_, err := ledger.Open(ctx, shift.OpenParams{OpeningFloat: opening, Operator: "ana"})
	require.NoError(t, err)

	types := []shift.Type{shift.TypeIncome, shift.TypeExpense}
	want := int64(opening)

	var recorded []*shift.Movement

	for i := range 200 {
		if len(recorded) > 0 && r.IntN(8) == 0 {
			idx := r.IntN(len(recorded))
			m := recorded[idx]

			require.NoError(t, ledger.DeleteMovement(ctx, m.ID), "step %d", i)

			recorded = append(recorded[:idx], recorded[idx+1:]...)
			want -= cashEffect(m)
		} else {
			m, err := ledger.Record(ctx, shift.RecordParams{
				Type:          types[r.IntN(len(types))],
				Amount:        r.Int64N(100_000) + 1,
				PaymentMethod: shift.PaymentMethods[r.IntN(len(shift.PaymentMethods))],
				Category:      shift.Categories[r.IntN(len(shift.Categories))],
				Description:   "mov",
			})
			require.NoError(t, err, "step %d", i)

			recorded = append(recorded, m)
			want += cashEffect(m)
		}

		got, err := ledger.ExpectedCash(ctx)
		require.NoError(t, err, "step %d", i)
		require.Equal(t, want, got, "step %d", i)
	}

	summary, err := ledger.Close(ctx, shift.CloseParams{CountedCash: want})
	require.NoError(t, err)
	assert.Equal(t, want, summary.ExpectedCash)
	assert.Equal(t, len(recorded), summary.MovementCount)
	assert.Equal(t, shift.VarianceExact, summary.VarianceKind())
}

func TestStore_SQLite_ConcurrentOpen(t *testing.T) {
	repo := newSQLiteStore(t)

	const callers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)

	for i := range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			// Separate ledgers so only the store lock serialises them.
			ledger := shift.NewLedger(repo)

			_, err := ledger.Open(context.Background(), shift.OpenParams{OpeningFloat: int64(i) * 100, Operator: "ana"})

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				succeeded++
			case shift.KindOf(err) == shift.ErrConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, conflicts)
}

func TestStore_SQLite_RecordRacesClose(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteStore(t)

	_, err := shift.NewLedger(repo).Open(ctx, shift.OpenParams{OpeningFloat: 1000, Operator: "ana"})
	require.NoError(t, err)

	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := shift.NewLedger(repo).Record(ctx, shift.RecordParams{
				Type: shift.TypeIncome, Amount: 100, Description: "Corte",
			})
			if err != nil && shift.KindOf(err) != shift.ErrPrecondition {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	summary, err := shift.NewLedger(repo).Close(ctx, shift.CloseParams{CountedCash: 1000})
	require.NoError(t, err)

	wg.Wait()

	detail, err := shift.NewHistory(repo, "").Detail(ctx, summary.ShiftID)
	require.NoError(t, err)

	// Every movement that made it in is reflected in the frozen figures.
	assert.Len(t, detail.Movements, summary.MovementCount)
	assert.Equal(t, summary.ExpectedCash, shift.ExpectedCash(summary.OpeningFloat, detail.Movements))
}

func TestStore_SQLite_UniqueOpenIndex(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteStore(t)

	save := func() error {
		return repo.WithinRegister(ctx, shift.DefaultRegisterID, func(tx shift.Tx) error {
			return tx.SaveShift(ctx, &shift.Shift{
				ID:         uuid.New(),
				RegisterID: shift.DefaultRegisterID,
				Status:     shift.StatusOpen,
				Operator:   "ana",
				OpenedAt:   time.Now().UTC(),
			})
		})
	}

	require.NoError(t, save())
	assert.ErrorIs(t, save(), shift.ErrConflict)
}

func TestStore_SQLite_ClosedShiftIsFrozen(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteStore(t)
	ledger := shift.NewLedger(repo)

	opened, err := ledger.Open(ctx, shift.OpenParams{OpeningFloat: 1000, Operator: "ana"})
	require.NoError(t, err)

	_, err = ledger.Close(ctx, shift.CloseParams{CountedCash: 1000})
	require.NoError(t, err)

	stored, err := repo.GetShift(ctx, opened.ID)
	require.NoError(t, err)

	stored.Observations = "rewritten"

	err = repo.WithinRegister(ctx, shift.DefaultRegisterID, func(tx shift.Tx) error {
		return tx.SaveShift(ctx, stored)
	})
	require.ErrorIs(t, err, shift.ErrForbidden)

	again, err := repo.GetShift(ctx, opened.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Observations)
}

func TestStore_SQLite_HistoryRange(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteStore(t)

	clock := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	ledger := shift.NewLedger(repo, shift.WithClock(func() time.Time { return clock }))

	for day := range 3 {
		clock = time.Date(2026, 10, 1+day, 9, 0, 0, 0, time.UTC)

		_, err := ledger.Open(ctx, shift.OpenParams{OpeningFloat: 1000, Operator: "ana"})
		require.NoError(t, err)

		clock = clock.Add(8 * time.Hour)

		_, err = ledger.Close(ctx, shift.CloseParams{CountedCash: 1000})
		require.NoError(t, err)
	}

	history := shift.NewHistory(repo, "")

	from := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	got, err := history.List(ctx, shift.DateRange{From: &from})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].ClosedAt.After(got[1].ClosedAt))

	to := time.Date(2026, 10, 1, 23, 59, 59, 0, time.UTC)
	got, err = history.List(ctx, shift.DateRange{To: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ClosedAt.Day())

	other, err := shift.NewHistory(repo, "front").List(ctx, shift.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, other)
}
