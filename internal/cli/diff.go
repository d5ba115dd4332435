package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mercado-qa/internal/contract"
)

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "diff <openapi-a> <openapi-b>",
		Short: "Compare two OpenAPI documents",
		Long:  "Lists operations added and removed between two OpenAPI documents, and operations whose documented status codes changed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.OutOrStdout(), args[0], args[1], outDir)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "also write contract-diff.json to this directory")

	return cmd
}

func runDiff(w io.Writer, aPath, bPath, outDir string) error {
	a, err := contract.LoadFromFile(aPath)
	if err != nil {
		return fmt.Errorf("openapi A load: %w", err)
	}
	b, err := contract.LoadFromFile(bPath)
	if err != nil {
		return fmt.Errorf("openapi B load: %w", err)
	}
	rep := contract.DiffDocs(a.Doc(), b.Doc())

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("mkdir out: %w", err)
		}
		if err := writeFile(filepath.Join(outDir, "contract-diff.json"), func(f io.Writer) error {
			enc := json.NewEncoder(f)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "Contract diff (%s -> %s)\n", aPath, bPath)
	if rep.Empty() {
		fmt.Fprintln(w, "  No changes.")
		return nil
	}
	if len(rep.Added) > 0 {
		fmt.Fprintln(w, "  Added:")
		for _, op := range rep.Added {
			fmt.Fprintf(w, "    + %s\n", op)
		}
	}
	if len(rep.Removed) > 0 {
		fmt.Fprintln(w, "  Removed:")
		for _, op := range rep.Removed {
			fmt.Fprintf(w, "    - %s\n", op)
		}
	}
	if len(rep.ChangedStatus) > 0 {
		fmt.Fprintln(w, "  Status changes:")
		for _, ch := range rep.ChangedStatus {
			fmt.Fprintf(w, "    * %s %s: %v -> %v\n", ch.Method, ch.Path, ch.A, ch.B)
		}
	}
	return nil
}
