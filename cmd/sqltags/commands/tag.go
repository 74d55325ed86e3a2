package commands

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tagworks/sqltags/errors"
	"github.com/tagworks/sqltags/sqltags"
	"github.com/tagworks/sqltags/tagset"
)

// TagCmd represents the tag command
var TagCmd = &cobra.Command{
	Use:   "tag {-|entity-name} {tag[=value]|-tag}...",
	Short: "Tag an entity with multiple tags",
	Long: `Tag an entity with multiple tags.

With the form "-tag", remove that tag from the entity. An entity-name of
"-" reads entity names from standard input, applying the same tags to each.
Entities may also be addressed by decimal id.

Examples:
  sqltags tag project.sqltags status=active priority=2
  sqltags tag project.sqltags -- -priority`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTag,
}

// tagChoice is one tag argument: a tag to set, or a tag name to remove.
type tagChoice struct {
	remove bool
	tag    tagset.Tag
}

func runTag(cmd *cobra.Command, args []string) error {
	choices, err := parseTagChoices(args[1:])
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.DB().Close()

	ctx := cmd.Context()
	if args[0] == "-" {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := applyTagChoices(ctx, store, scanner.Text(), choices); err != nil {
				return err
			}
		}
		return errors.Wrap(scanner.Err(), "reading entity names")
	}
	return applyTagChoices(ctx, store, args[0], choices)
}

func applyTagChoices(ctx context.Context, store *sqltags.Store, name string, choices []tagChoice) error {
	entity, err := lookupEntity(ctx, store, name)
	if err != nil {
		return errors.Wrapf(err, "%s", name)
	}
	for _, choice := range choices {
		if choice.remove {
			if _, err := store.DiscardTag(ctx, entity.ID, choice.tag.Name, nil); err != nil {
				return errors.Wrapf(err, "%s: discard %s", name, choice.tag.Name)
			}
			continue
		}
		if err := store.SetTag(ctx, entity.ID, choice.tag.Name, choice.tag.Value); err != nil {
			return errors.Wrapf(err, "%s: set %s", name, choice.tag)
		}
	}
	return nil
}

// parseTagChoices parses tag arguments: "tag[=value]" sets, "-tag" removes.
func parseTagChoices(args []string) ([]tagChoice, error) {
	choices := make([]tagChoice, 0, len(args))
	for _, arg := range args {
		if name, ok := strings.CutPrefix(arg, "-"); ok {
			if !tagset.IsValidTagName(name) {
				return nil, errors.Newf("bad tag name in %q", arg)
			}
			choices = append(choices, tagChoice{remove: true, tag: tagset.Tag{Name: name}})
			continue
		}
		tag, err := tagset.ParseTag(arg, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "bad tag %q", arg)
		}
		choices = append(choices, tagChoice{tag: tag})
	}
	return choices, nil
}
