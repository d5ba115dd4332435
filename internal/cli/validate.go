package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercado-qa/internal/mercado"
	"mercado-qa/internal/parser"
	"mercado-qa/internal/vars"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		suitePath string
		envFiles  []string
		assigns   []string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a suite and its fixture chain without sending requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, err := loadSuite(suitePath)
			if err != nil {
				return err
			}

			known := mercado.Vars(rootOpts.Config.BaseURL)
			fromFiles, err := vars.LoadFiles(envFiles)
			if err != nil {
				return fmt.Errorf("load env: %w", err)
			}
			assigned, err := vars.ParseAssignments(assigns)
			if err != nil {
				return fmt.Errorf("--var: %w", err)
			}
			for _, m := range []map[string]string{fromFiles, assigned} {
				for k, v := range m {
					known[k] = v
				}
			}
			if err := parser.CheckChain(suite, knownNames(known)); err != nil {
				return err
			}

			var steps int
			for _, sc := range suite.Scenarios {
				steps += len(sc.Steps)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK %s: %d scenarios, %d steps\n", suite.Name, len(suite.Scenarios), steps)
			producers := parser.Producers(suite)
			for _, name := range knownNames(producers) {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s <- %s\n", name, producers[name])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&suitePath, "suite", "", "path to a YAML/JSON suite (default: embedded Mercado suite)")
	cmd.Flags().StringSliceVar(&envFiles, "env", nil, "variable files (.json, .yaml or .env)")
	cmd.Flags().StringArrayVar(&assigns, "var", nil, "extra variable KEY=VALUE (repeatable)")

	return cmd
}
