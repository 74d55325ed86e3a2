package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tagworks/sqltags/cmd/sqltags/commands"
	"github.com/tagworks/sqltags/logger"
)

var rootCmd = &cobra.Command{
	Use:   "sqltags",
	Short: "sqltags - SQLite-backed tagged entities and log entries",
	Long: `sqltags - SQLite-backed tagged entities and log entries.

Entities are named records or timestamped log entries, each carrying a set
of name=value tags. Tag values may be typed through an ontology stored in
the same database.

Available commands:
  log    - Record timestamped log entries
  tag    - Add or remove tags on named entities
  find   - List entities matching tag criteria
  ns     - List named entities and their tags
  ont    - Inspect and edit the tag ontology
  edit   - Edit an entity's tags in $EDITOR
  export - Export entities as CSV
  import - Import entities from CSV
  db     - Database operations

Examples:
  sqltags log 'work,kernel: fixed the lock ordering'
  sqltags tag project.sqltags status=active
  sqltags find 'status=active' 'start_date<2026-01-01'
  sqltags export 'categories~work' > work.csv`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetCount("verbose")
		logger.Verbose = verbose > 0
		if err := logger.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail)")
	rootCmd.PersistentFlags().StringVarP(&commands.DBPath, "db", "f", "", "SQLite database path (default from config)")

	rootCmd.AddCommand(commands.LogCmd)
	rootCmd.AddCommand(commands.TagCmd)
	rootCmd.AddCommand(commands.FindCmd)
	rootCmd.AddCommand(commands.NsCmd)
	rootCmd.AddCommand(commands.OntCmd)
	rootCmd.AddCommand(commands.EditCmd)
	rootCmd.AddCommand(commands.ExportCmd)
	rootCmd.AddCommand(commands.ImportCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
