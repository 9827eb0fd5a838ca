package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteDSN(t *testing.T) string {
	t.Helper()

	return "file:" + filepath.Join(t.TempDir(), "caja.db") + "?_foreign_keys=on&_txlock=immediate"
}

func TestMigrate_SQLite(t *testing.T) {
	dsn := sqliteDSN(t)

	require.NoError(t, Migrate(DriverSQLite, dsn))
	require.NoError(t, Migrate(DriverSQLite, dsn), "second run must be a no-op")

	db, err := New(DriverSQLite, dsn)
	require.NoError(t, err)

	defer db.Close()

	for _, table := range []string{"shifts", "movements"} {
		var n int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}

	var idx int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'shifts_one_open_per_register'").Scan(&idx)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New("mysql", "whatever")
	assert.ErrorContains(t, err, `unsupported database driver "mysql"`)

	assert.Error(t, Migrate("mysql", "whatever"))
}
