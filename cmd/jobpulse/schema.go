package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobpulse/internal/schemas"
	embedded "github.com/jonathan/jobpulse/schemas"
)

// schemaAliases maps the names accepted on the command line to embedded schema files.
var schemaAliases = map[string]string{
	"rules":       embedded.Rules,
	"application": embedded.ExtractedApplication,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Validate JSON documents against the embedded schemas",
}

var schemaValidateCmd = &cobra.Command{
	Use:   "validate <rules|application> <file>",
	Short: "Validate a JSON file on disk against a named schema",
	Args:  cobra.ExactArgs(2),
	RunE:  runSchemaValidate,
}

func init() {
	schemaCmd.AddCommand(schemaValidateCmd)
	rootCmd.AddCommand(schemaCmd)
}

func runSchemaValidate(cmd *cobra.Command, args []string) error {
	name, ok := schemaAliases[args[0]]
	if !ok {
		known := make([]string, 0, len(schemaAliases))
		for alias := range schemaAliases {
			known = append(known, alias)
		}
		sort.Strings(known)
		return fmt.Errorf("unknown schema %q: must be one of %s", args[0], strings.Join(known, ", "))
	}
	if err := schemas.ValidateJSON(name, args[1]); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: valid %s\n", args[1], args[0])
	return nil
}
