package commands

import (
	"os"
	"os/exec"
	"strings"

	"github.com/tagworks/sqltags/config"
	"github.com/tagworks/sqltags/errors"
	"github.com/tagworks/sqltags/tagset"
)

// editorEditFunc returns an EditFunc that round-trips lines through the
// configured editor on a temporary file.
func editorEditFunc() tagset.EditFunc {
	return func(lines []string) ([]string, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		editor := cfg.GetEditor()

		tmpFile, err := os.CreateTemp("", "sqltags-edit-*.txt")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create temp file")
		}
		tmpPath := tmpFile.Name()
		defer os.Remove(tmpPath)

		text := strings.Join(lines, "\n")
		if text != "" {
			text += "\n"
		}
		if _, err := tmpFile.WriteString(text); err != nil {
			tmpFile.Close()
			return nil, errors.Wrap(err, "failed to write temp file")
		}
		if err := tmpFile.Close(); err != nil {
			return nil, errors.Wrap(err, "failed to close temp file")
		}

		// The editor setting may carry arguments, e.g. "code -w".
		editorArgs := strings.Fields(editor)
		editorArgs = append(editorArgs, tmpPath)
		cmd := exec.Command(editorArgs[0], editorArgs[1:]...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return nil, errors.Wrapf(err, "editor %s failed", editor)
		}

		edited, err := os.ReadFile(tmpPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read edited file")
		}
		return splitEditedLines(string(edited)), nil
	}
}

// splitEditedLines splits editor output into lines, dropping a single
// trailing newline so an unchanged file round-trips exactly.
func splitEditedLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
