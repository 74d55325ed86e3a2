package commands

import (
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tagworks/sqltags/errors"
)

// ImportCmd represents the import command
var ImportCmd = &cobra.Command{
	Use:   "import {-|file.csv}",
	Short: "Import entities from CSV",
	Long: `Import entities from CSV rows of the form unixtime,id,name,tag...

A file of "-" reads from standard input. Imported entities get fresh ids;
the id column is ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	var input io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to open %s", args[0])
		}
		defer f.Close()
		input = f
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.DB().Close()

	count, err := store.ImportCSV(cmd.Context(), input)
	if err != nil {
		return err
	}
	pterm.Printf("imported %d entities\n", count)
	return nil
}
