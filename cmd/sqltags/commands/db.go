package commands

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tagworks/sqltags/errors"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the sqltags database",
	Long: `Manage sqltags database operations.

Examples:
  sqltags db init     # Create the database and run migrations
  sqltags db stats    # Show database statistics`,
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and run migrations",
	RunE:  runDbInit,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbInitCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbInit(cmd *cobra.Command, args []string) error {
	dbPath, err := databasePath()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return errors.Wrap(err, "failed to initialise database")
	}
	defer store.DB().Close()

	fmt.Printf("initialised %s\n", dbPath)
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	dbPath, err := databasePath()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	database := store.DB()
	defer database.Close()

	var totalEntities, namedEntities, totalTags, uniqueTagNames int
	err = database.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM entities),
			(SELECT COUNT(*) FROM entities WHERE name IS NOT NULL),
			(SELECT COUNT(*) FROM tags),
			(SELECT COUNT(DISTINCT name) FROM tags)
	`).Scan(&totalEntities, &namedEntities, &totalTags, &uniqueTagNames)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrap(err, "failed to query database stats")
	}

	var ontologyEntries int
	err = database.QueryRow(`SELECT COUNT(*) FROM ontology`).Scan(&ontologyEntries)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrap(err, "failed to query ontology stats")
	}

	fmt.Printf("Database Statistics\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Printf("Database Path:    %s\n", dbPath)
	fmt.Printf("Total Entities:   %d\n", totalEntities)
	fmt.Printf("Named Entities:   %d\n", namedEntities)
	fmt.Printf("Log Entries:      %d\n", totalEntities-namedEntities)
	fmt.Printf("Total Tags:       %d\n", totalTags)
	fmt.Printf("Unique Tag Names: %d\n", uniqueTagNames)
	fmt.Printf("Ontology Entries: %d\n", ontologyEntries)
	return nil
}
