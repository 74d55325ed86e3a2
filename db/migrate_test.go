package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	t.Run("creates the schema", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		db, err := Open(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		err = Migrate(db, nil)
		require.NoError(t, err)

		for _, table := range []string{"schema_migrations", "entities", "tags", "ontology"} {
			var count int
			err = db.QueryRow(
				"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
			).Scan(&count)
			require.NoError(t, err)
			assert.Equal(t, 1, count, "table %s should exist after migrations", table)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		db, err := Open(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		err = Migrate(db, nil)
		require.NoError(t, err)

		err = Migrate(db, nil)
		require.NoError(t, err, "running migrations multiple times should be safe")
	})

	t.Run("enforces entity name uniqueness", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		db, err := OpenWithMigrations(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		_, err = db.Exec("INSERT INTO entities (name, unixtime) VALUES ('movie.1', 1.0)")
		require.NoError(t, err)
		_, err = db.Exec("INSERT INTO entities (name, unixtime) VALUES ('movie.1', 2.0)")
		require.Error(t, err, "duplicate entity names are rejected")

		// unnamed log entries are not subject to the unique constraint
		_, err = db.Exec("INSERT INTO entities (name, unixtime) VALUES (NULL, 1.0)")
		require.NoError(t, err)
		_, err = db.Exec("INSERT INTO entities (name, unixtime) VALUES (NULL, 2.0)")
		require.NoError(t, err)
	})
}
