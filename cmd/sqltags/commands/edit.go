package commands

import (
	"github.com/spf13/cobra"

	"github.com/tagworks/sqltags/errors"
)

// EditCmd represents the edit command
var EditCmd = &cobra.Command{
	Use:   "edit entity-name",
	Short: "Edit an entity's tags in the configured editor",
	Long: `Edit an entity's tags in the configured editor, one tag per line.

Lines may be added, changed or removed; blank lines and # comments are
ignored. The edited result is written back to the database.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.DB().Close()

	ctx := cmd.Context()
	entity, err := lookupEntity(ctx, store, args[0])
	if err != nil {
		return errors.Wrapf(err, "%s", args[0])
	}

	tags, err := store.EntityTags(ctx, entity.ID)
	if err != nil {
		return err
	}

	before := make(map[string]interface{})
	for _, tag := range tags.AsTags("") {
		before[tag.Name] = tag.Value
	}

	if err := tags.Edit(editorEditFunc()); err != nil {
		return err
	}

	for _, tag := range tags.AsTags("") {
		if err := store.SetTag(ctx, entity.ID, tag.Name, tag.Value); err != nil {
			return errors.Wrapf(err, "set %s", tag)
		}
		delete(before, tag.Name)
	}
	for name := range before {
		if _, err := store.DiscardTag(ctx, entity.ID, name, nil); err != nil {
			return errors.Wrapf(err, "discard %s", name)
		}
	}
	return nil
}
