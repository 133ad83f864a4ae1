// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInMemory(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Ping())

	// Migrations ran as part of Open.
	var tables []string
	require.NoError(t, db.Select(&tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`))
	assert.Contains(t, tables, "users")
	assert.Contains(t, tables, "verification_codes")
}

func TestOpenCreatesFileDatabase(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "data", "test.db")

	db, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Ping())
	assert.FileExists(t, dsn)
}

func TestAddDefaultParams(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
	}{
		{"plain path", "./data/app.db"},
		{"existing query", "./data/app.db?_busy_timeout=100"},
		{"memory", ":memory:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := addDefaultParams(tt.dsn)
			assert.Contains(t, got, "_txlock")
			assert.Contains(t, got, "_busy_timeout")
			assert.Contains(t, got, "_foreign_keys")
		})
	}
}

func TestMigrateDown(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, MigrateDown(db.DB))

	var tables []string
	require.NoError(t, db.Select(&tables,
		`SELECT name FROM sqlite_master WHERE type = 'table'`))
	assert.NotContains(t, tables, "verification_codes")
	assert.Contains(t, tables, "users")
}
