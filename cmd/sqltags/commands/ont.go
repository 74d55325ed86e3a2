package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tagworks/sqltags/errors"
	"github.com/tagworks/sqltags/tagset"
)

// OntCmd represents the ont command
var OntCmd = &cobra.Command{
	Use:   "ont",
	Short: "Inspect and edit the tag ontology",
	Long: `Inspect and edit the tag ontology stored in the database.

The ontology maps tag names to type definitions ("type.*" entries) and
per-value metadata ("meta.*" entries).

Examples:
  sqltags ont types                # List defined types
  sqltags ont types colour         # Show the colour type definition
  sqltags ont meta colour          # List metadata entries for colour values
  sqltags ont edit                 # Edit all type definitions in $EDITOR
  sqltags ont edit colour size     # Edit selected type definitions`,
}

var ontTypesCmd = &cobra.Command{
	Use:   "types [type-name...]",
	Short: "List ontology types or show their definitions",
	RunE:  runOntTypes,
}

var ontMetaCmd = &cobra.Command{
	Use:   "meta type-name [value-key...]",
	Short: "List or show per-value metadata for a type",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runOntMeta,
}

var ontEditCmd = &cobra.Command{
	Use:   "edit [type-name...]",
	Short: "Edit type definitions in the configured editor",
	RunE:  runOntEdit,
}

func init() {
	OntCmd.AddCommand(ontTypesCmd)
	OntCmd.AddCommand(ontMetaCmd)
	OntCmd.AddCommand(ontEditCmd)
}

func runOntTypes(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.DB().Close()
	ont := store.Ontology()

	if len(args) == 0 {
		for name := range ont.TypeNames() {
			fmt.Println(name)
		}
		return nil
	}

	var missing bool
	for _, name := range args {
		typeData := ont.TypeData(name)
		if typeData == nil || len(typeData.AsTags("")) == 0 {
			pterm.Error.Printf("%s: no type definition\n", name)
			missing = true
			continue
		}
		fmt.Printf("%s %s\n", name, typeData)
	}
	if missing {
		return errors.New("missing types")
	}
	return nil
}

func runOntMeta(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.DB().Close()
	ont := store.Ontology()

	typeName := args[0]
	if len(args) == 1 {
		for name := range ont.MetaNames(typeName) {
			fmt.Println(name)
		}
		return nil
	}

	var missing bool
	for _, valueKey := range args[1:] {
		meta, err := ont.Meta(typeName, valueKey)
		if err != nil {
			pterm.Error.Printf("%s.%s: %v\n", typeName, valueKey, err)
			missing = true
			continue
		}
		fmt.Printf("%s.%s %s\n", typeName, valueKey, meta)
	}
	if missing {
		return errors.New("missing metadata")
	}
	return nil
}

func runOntEdit(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.DB().Close()
	ont := store.Ontology()

	var indices []string
	if len(args) == 0 {
		for name := range ont.TypeNames() {
			indices = append(indices, tagset.TypeIndex(name))
		}
	} else {
		for _, name := range args {
			indices = append(indices, tagset.TypeIndex(name))
		}
	}
	if len(indices) == 0 {
		pterm.Info.Println("no type definitions to edit")
		return nil
	}

	return ont.EditIndices(indices, "type.", editorEditFunc())
}
