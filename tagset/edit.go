package tagset

import (
	"strings"

	"github.com/tagworks/sqltags/errors"
)

// EditFunc presents lines to an external editor and returns the edited lines.
// The CLI supplies one that spawns $EDITOR; tests supply pure functions.
type EditFunc func(lines []string) ([]string, error)

// Edit round-trips the TagSet through its text representation, one tag per
// line, and applies the edited result via SetFrom. Blank lines and lines
// starting with "#" in the edited text are ignored.
//
// This is the single supported bulk-mutation workflow.
func (ts *TagSet) Edit(edit EditFunc) error {
	lines := []string{
		"# Edit TagSet.",
		"# One tag per line.",
	}
	for _, tag := range ts.AsTags("") {
		lines = append(lines, tag.String())
	}
	newLines, err := edit(lines)
	if err != nil {
		return errors.Wrap(err, "edit")
	}
	newValues, err := parseEditedTagLines(newLines, ts.Ontology)
	if err != nil {
		return err
	}
	ts.SetFrom(newValues)
	return nil
}

// parseEditedTagLines parses edited text back into a name to value mapping,
// skipping blanks and # comments.
func parseEditedTagLines(lines []string, ont *TagsOntology) (map[string]interface{}, error) {
	values := make(map[string]interface{})
	for lineno, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tag, err := ParseTag(line, ont)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: %q", lineno+1, line)
		}
		values[tag.Name] = tag.Value
	}
	return values, nil
}
