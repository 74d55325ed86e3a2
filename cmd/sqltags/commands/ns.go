package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tagworks/sqltags/errors"
)

// NsCmd represents the ns command
var NsCmd = &cobra.Command{
	Use:   "ns entity-name...",
	Short: "List entities and their tags",
	Long: `List the named entities and their tags, one tag per line.

Entities may be addressed by name or by decimal id.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNs,
}

func runNs(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.DB().Close()

	ctx := cmd.Context()
	var missing bool
	for _, name := range args {
		entity, err := lookupEntity(ctx, store, name)
		if err != nil {
			pterm.Error.Printf("%s: %v\n", name, err)
			missing = true
			continue
		}
		pterm.Printf("%s\n", pterm.Cyan(name))
		for _, tag := range entity.Tags.AsTags("") {
			fmt.Printf("  %s\n", tag)
		}
	}
	if missing {
		return errors.New("missing entities")
	}
	return nil
}
