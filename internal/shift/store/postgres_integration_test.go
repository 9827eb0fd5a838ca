//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/MrJamesThe3rd/caja/internal/database"
	"github.com/MrJamesThe3rd/caja/internal/shift"
	"github.com/MrJamesThe3rd/caja/internal/shift/store"
)

func newPostgresStore(t *testing.T) *store.Store {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("caja_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.Migrate(database.DriverPostgres, dsn))
	// Running twice must be a no-op.
	require.NoError(t, database.Migrate(database.DriverPostgres, dsn))

	db, err := database.New(database.DriverPostgres, dsn)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return store.New(db, store.DialectPostgres, store.WithRetry(fastRetry()))
}

func TestStore_Postgres(t *testing.T) {
	repo := newPostgresStore(t)

	t.Run("Lifecycle", func(t *testing.T) {
		runLifecycle(t, repo)

		// Leave the register free for the next subtest.
		_, err := shift.NewLedger(repo).Close(context.Background(), shift.CloseParams{CountedCash: 12500})
		require.NoError(t, err)
	})

	t.Run("ConcurrentOpen", func(t *testing.T) {
		const callers = 8

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)

		for range callers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, err := shift.NewLedger(repo, shift.WithRegister("race")).
					Open(context.Background(), shift.OpenParams{OpeningFloat: 100, Operator: "ana"})

				mu.Lock()
				defer mu.Unlock()

				if err == nil {
					succeeded++

					return
				}

				assert.ErrorIs(t, err, shift.ErrConflict)
			}()
		}

		wg.Wait()
		assert.Equal(t, 1, succeeded)
	})
}
