// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Pragmas(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "nested", "pragmas.sqlite"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestMigrate_AppliesOnce(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "migrate.sqlite"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	schema := `CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`
	require.NoError(t, Migrate(db, 1, schema))
	// A second run at the same version must not re-run the CREATE TABLE.
	require.NoError(t, Migrate(db, 1, schema))

	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, 1, version)
}

func TestVerify_Healthy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "healthy.sqlite")
	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	for _, mode := range []Mode{ModeQuick, ModeFull} {
		rep, err := Verify(context.Background(), path, mode)
		require.NoError(t, err)
		assert.True(t, rep.Healthy(), "mode %s", mode)
		assert.Empty(t, rep.Problems)
		assert.Equal(t, mode, rep.Mode)
	}
}

func TestVerify_MissingFile(t *testing.T) {
	rep, err := Verify(context.Background(), filepath.Join(t.TempDir(), "absent.sqlite"), ModeQuick)
	require.NoError(t, err)
	assert.True(t, rep.Missing)
	assert.False(t, rep.Healthy())
}

func TestVerify_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.sqlite")
	require.NoError(t, os.WriteFile(path, []byte("definitely not sqlite, just some bytes padded out"), 0o600))

	rep, err := Verify(context.Background(), path, ModeQuick)
	assert.True(t, err != nil || !rep.Healthy(), "garbage file must not verify as healthy")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" FULL ")
	require.NoError(t, err)
	assert.Equal(t, ModeFull, m)

	_, err = ParseMode("deep")
	assert.Error(t, err)
}
