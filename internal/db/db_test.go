package db_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tokscribe/tokscribe/internal/db"
	"github.com/tokscribe/tokscribe/migrations"
)

func TestInitDBAndMigrations(t *testing.T) {
	database, err := db.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database, migrations.FS))

	// Foreign keys must be on.
	var fk int
	require.NoError(t, database.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	require.Equal(t, 1, fk)

	// The job history table must exist after migrating.
	var name string
	err = database.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='job_history'",
	).Scan(&name)
	require.NoError(t, err)
	require.Equal(t, "job_history", name)

	// Re-running migrations must be a no-op, not an error.
	require.NoError(t, db.RunMigrations(database, migrations.FS))
}
