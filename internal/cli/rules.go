package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clausecheck/clausecheck/internal/rules"
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate compliance rulesets",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <rules.yaml>",
	Short: "Validate a rules file and report per-rule problems",
	Long: `Validate parses and normalizes a rules YAML file, printing every
rule that would be dropped and why. A ruleset with at least one usable
rule validates successfully.

Example:
  clausecheck rules validate rules.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ruleList, issues, err := rules.Load(args[0])
		if err != nil {
			return err
		}

		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", issue)
		}
		for _, rule := range ruleList {
			deterministic := ""
			checks := rule.DeterministicChecks
			if len(checks.RequiredKeywords)+len(checks.ForbiddenKeywords)+len(checks.RegexPatterns)+len(checks.ProximityRules) > 0 {
				deterministic = " [deterministic]"
			}
			fmt.Printf("  %s: %s%s\n", rule.RuleID, rule.Name, deterministic)
		}

		fmt.Printf("\n%d usable rules, %d issues\n", len(ruleList), len(issues))
		if len(ruleList) == 0 {
			return fmt.Errorf("no usable rules in %s", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
}
