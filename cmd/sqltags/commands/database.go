package commands

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tagworks/sqltags/config"
	"github.com/tagworks/sqltags/db"
	"github.com/tagworks/sqltags/errors"
	"github.com/tagworks/sqltags/logger"
	"github.com/tagworks/sqltags/sqltags"
	"github.com/tagworks/sqltags/tagset"
)

// DBPath overrides the configured database path when set (the -f flag).
var DBPath string

// databasePath resolves the database path from the -f flag or the config,
// expanding a leading ~.
func databasePath() (string, error) {
	if DBPath != "" {
		return config.ExpandPath(DBPath), nil
	}
	path, err := config.GetDatabasePath()
	if err != nil {
		return "", errors.Wrap(err, "failed to get database path")
	}
	return path, nil
}

// openStore opens and migrates the database and wraps it in a Store.
// The caller must Close the returned store's DB.
func openStore() (*sqltags.Store, error) {
	dbPath, err := databasePath()
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create database directory %s", dir)
		}
	}

	database, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}

	return sqltags.NewStore(database, logger.Logger), nil
}

// lookupEntity resolves an entity by decimal id or by name.
func lookupEntity(ctx context.Context, store *sqltags.Store, name string) (*tagset.TaggedEntity, error) {
	if id, err := strconv.ParseInt(name, 10, 64); err == nil {
		return store.GetID(ctx, id)
	}
	return store.Get(ctx, name)
}

// parseCriteria parses each argument as a tag criterion.
func parseCriteria(args []string) ([]tagset.TagSetCriterion, error) {
	criteria := make([]tagset.TagSetCriterion, 0, len(args))
	for _, arg := range args {
		criterion, err := tagset.ParseCriterion(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "bad criterion %q", arg)
		}
		criteria = append(criteria, criterion)
	}
	return criteria, nil
}
