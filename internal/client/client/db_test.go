package client

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func tables(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestInitDatabase_Migrates(t *testing.T) {
	ctx := context.Background()

	db, err := InitDatabase(ctx, filepath.Join(t.TempDir(), DatabaseFile))
	require.NoError(t, err)
	defer db.Close()

	got := tables(t, db)
	assert.Contains(t, got, "goose_db_version")
	assert.Contains(t, got, "metadata")

	_, err = db.ExecContext(ctx, `INSERT INTO metadata(key, value) VALUES ('session.blob', x'00')`)
	require.NoError(t, err)

	var updated sql.NullString
	require.NoError(t, db.QueryRowContext(ctx, `SELECT updated_at FROM metadata WHERE key = 'session.blob'`).Scan(&updated))
	assert.True(t, updated.Valid, "updated_at should default on insert")
}

func TestRunMigrations_Twice(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db))
	assert.Contains(t, tables(t, db), "metadata")
}

func TestInitDatabase_SingleConnection(t *testing.T) {
	db, err := InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestOpenDataDir(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "kumo")

	db, err := OpenDataDir(ctx, dir)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Join(dir, DatabaseFile))
	require.NoError(t, err)

	_, err = OpenDataDir(ctx, filepath.Join(os.DevNull, "kumo"))
	require.Error(t, err)
}
