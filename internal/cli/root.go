package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercado-qa/internal/config"
	"mercado-qa/internal/logger"
)

// ErrSuiteFailed means the run completed and at least one step, or the
// coverage gate, failed.
var ErrSuiteFailed = errors.New("suite failed")

// RootOptions holds global flags and the loaded configuration.
type RootOptions struct {
	Verbose bool
	Config  *config.Config
}

// NewRootCommand creates the root command for the mercado-qa CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "mercado-qa",
		Short:         "Contract tests for the Mercado API",
		Long:          "Runs the chained Mercado API suite and writes JSON, JUnit, HTML and coverage reports.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			opts.Config = cfg

			level := cfg.Log.Level
			if opts.Verbose {
				level = "debug"
			}
			return logger.GetLogger().Configure(level, cfg.Log.Format, cfg.Log.Output, cfg.Log.MaxAge)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDiffCommand(opts))

	return cmd
}

// ExitCode maps a command error to the process exit status: 1 for a failed
// suite, 2 for usage and configuration errors.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrSuiteFailed):
		return 1
	default:
		return 2
	}
}
