package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobpulse/internal/platform"
	"github.com/jonathan/jobpulse/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate rule bases",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a rule file against the schema and compile every pattern",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesValidate,
}

var rulesDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the effective rule base (embedded default or --rules)",
	RunE:  runRulesDump,
}

var rulesPlatformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List every platform name the effective rule base can assign",
	RunE:  runRulesPlatforms,
}

var rulesDumpFormat string

func init() {
	rulesDumpCmd.Flags().StringVar(&rulesDumpFormat, "format", "json", "Output format: json or yaml")
	rulesCmd.AddCommand(rulesValidateCmd, rulesDumpCmd, rulesPlatformsCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	rs, err := rules.LoadFile(args[0])
	if err != nil {
		return err
	}
	src := rs.Source()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d platforms)\n", args[0], len(src.Platforms))
	return nil
}

func runRulesDump(cmd *cobra.Command, _ []string) error {
	var format rules.Format
	switch rulesDumpFormat {
	case "json":
		format = rules.FormatJSON
	case "yaml", "yml":
		format = rules.FormatYAML
	default:
		return fmt.Errorf("unknown format %q: must be json or yaml", rulesDumpFormat)
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	rs, err := loadRuleSet(cfg.RulesPath)
	if err != nil {
		return err
	}
	data, err := rules.Encode(rs.Source(), format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runRulesPlatforms(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	rs, err := loadRuleSet(cfg.RulesPath)
	if err != nil {
		return err
	}
	for _, name := range platform.New(rs).Known() {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
