package commands

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// ExportCmd represents the export command
var ExportCmd = &cobra.Command{
	Use:   "export [criteria...]",
	Short: "Export entities as CSV",
	Long: `Export entities matching the given criteria as CSV on standard output.

With no criteria, every entity is exported. Rows are
unixtime,id,name,tag... and can be reloaded with the import command.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	criteria, err := parseCriteria(args)
	if err != nil {
		pterm.Error.Println(err)
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.DB().Close()

	count, err := store.ExportCSV(cmd.Context(), os.Stdout, criteria)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, pterm.Gray(fmt.Sprintf("exported %d entities", count)))
	return nil
}
