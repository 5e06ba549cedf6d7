package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwarden/cwarden/rules"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate rule sets",
	}
	cmd.AddCommand(newRulesCheckCmd())
	return cmd
}

func newRulesCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <rule-set.yaml>",
		Short: "Validate a rule-set file and print every diagnostic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := rules.Load(args[0])
			if err != nil {
				var diags rules.ValidationErrors
				if errors.As(err, &diags) {
					fmt.Fprintf(os.Stderr, "%s: %d problem(s)\n", args[0], len(diags))
					for _, d := range diags {
						fmt.Fprintf(os.Stderr, "  - %s\n", d.Error())
					}
					return &exitError{code: exitConfig}
				}
				return &exitError{code: exitConfig, err: err}
			}
			fmt.Printf("%s: %d rule(s), all valid\n", args[0], len(set.Rules))
			return nil
		},
	}
}
