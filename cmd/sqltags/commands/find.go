package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tagworks/sqltags/config"
)

// FindCmd represents the find command
var FindCmd = &cobra.Command{
	Use:   "find [-o output-format] {tag[=value]|-tag}...",
	Short: "List entities matching all the given criteria",
	Long: `List entities matching all the given tag criteria.

Each criterion is a tag test:
  tag          tag is present
  -tag, !tag   tag is absent
  tag=value    tag equals value
  tag<value    comparisons: < <= > >=
  tag~glob     tag matches a glob, or any list member does
  tag~/regexp  tag matches a regular expression
  id:1,2,3     entity id is one of the listed ids

Each match is printed with the output format, a {dotted.name} template
expanded against the entity's tags plus derived entity.* tags.

Examples:
  sqltags find 'categories~work' 'start_date>=2026-01-01'
  sqltags find -o '{entity.id} {headline}' headline~/review`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFind,
}

var findFormatFlag string

func init() {
	FindCmd.Flags().StringVarP(&findFormatFlag, "output-format", "o", "", "Output format template (default from config)")
}

func runFind(cmd *cobra.Command, args []string) error {
	criteria, err := parseCriteria(args)
	if err != nil {
		pterm.Error.Println(err)
		return err
	}

	format := findFormatFlag
	if format == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		format = cfg.GetFindFormat()
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.DB().Close()

	entities, err := store.Find(cmd.Context(), criteria, true)
	if err != nil {
		return err
	}
	for _, entity := range entities {
		fmt.Println(entity.FormatKwargs().FormatMap(format))
	}
	return nil
}
