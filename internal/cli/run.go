package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"mercado-qa/internal/executor"
	"mercado-qa/internal/logger"
	"mercado-qa/internal/mercado"
	"mercado-qa/internal/reporter"
	"mercado-qa/internal/vars"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	SuitePath   string
	BaseURL     string
	EnvFiles    []string
	Vars        []string
	OutDir      string
	JSON        bool
	JUnit       bool
	HTML        bool
	OpenAPIPath string
	Contract    bool
	CoverageMin float64
	Parallel    int
	FailFast    bool
	IncludeTags string
	ExcludeTags string
	Timeout     string
	Rate        float64
	Seed        int64
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the Mercado suite",
		Long: `Run the embedded Mercado suite (or --suite) against the configured base URL.

Identifiers created by earlier steps are captured and passed to later ones.
A step whose input was never captured is skipped and reported as failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, rootOpts, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.SuitePath, "suite", "", "path to a YAML/JSON suite (default: embedded Mercado suite)")
	f.StringVar(&opts.BaseURL, "base-url", "", "Mercado base URL (overrides MERCADO_BASE_URL)")
	f.StringSliceVar(&opts.EnvFiles, "env", nil, "variable files (.json, .yaml or .env), later files win")
	f.StringArrayVar(&opts.Vars, "var", nil, "extra variable KEY=VALUE (repeatable)")
	f.StringVar(&opts.OutDir, "out", "", "output directory for artifacts (overrides MERCADO_REPORT_DIR)")
	f.BoolVar(&opts.JSON, "json", true, "write results.json")
	f.BoolVar(&opts.JUnit, "junit", true, "write junit.xml")
	f.BoolVar(&opts.HTML, "html", true, "write report.html")
	f.StringVar(&opts.OpenAPIPath, "openapi", "", "OpenAPI document for contract checks and coverage")
	f.BoolVar(&opts.Contract, "contract", false, "validate every response against the OpenAPI document")
	f.Float64Var(&opts.CoverageMin, "coverage-min", -1, "fail if contract coverage percent is below this")
	f.IntVar(&opts.Parallel, "parallel", 1, "scenarios to run in parallel (isolated suites only)")
	f.BoolVar(&opts.FailFast, "fail-fast", false, "stop after the first failing scenario")
	f.StringVar(&opts.IncludeTags, "include-tags", "", "comma-separated tags to include")
	f.StringVar(&opts.ExcludeTags, "exclude-tags", "", "comma-separated tags to exclude")
	f.StringVar(&opts.Timeout, "timeout", "", "per-request timeout (overrides MERCADO_TIMEOUT)")
	f.Float64Var(&opts.Rate, "rate", 0, "max requests per second, 0 = unlimited (overrides MERCADO_RATE)")
	f.Int64Var(&opts.Seed, "seed", 0, "generator seed, 0 = random (overrides MERCADO_SEED)")

	return cmd
}

func runRun(cmd *cobra.Command, rootOpts *RootOptions, opts *RunOptions) error {
	cfg := rootOpts.Config
	log := logger.GetLogger().WithComponent("cli")

	suite, err := loadSuite(opts.SuitePath)
	if err != nil {
		return err
	}
	if opts.IncludeTags != "" || opts.ExcludeTags != "" {
		suite.Scenarios = filterByTags(suite.Scenarios, splitCSV(opts.IncludeTags), splitCSV(opts.ExcludeTags))
		if len(suite.Scenarios) == 0 {
			return errors.New("no scenarios left after tag filtering")
		}
	}

	baseVars, err := runVars(cfg.BaseURL, opts)
	if err != nil {
		return err
	}

	timeout := cfg.Timeout
	if opts.Timeout != "" {
		if timeout, err = parsePositiveDuration(opts.Timeout); err != nil {
			return fmt.Errorf("--timeout: %w", err)
		}
	}
	rps := cfg.Rate
	if cmd.Flags().Changed("rate") {
		rps = opts.Rate
	}
	seed := cfg.Seed
	if cmd.Flags().Changed("seed") {
		seed = opts.Seed
	}
	outDir := cfg.ReportDir
	if opts.OutDir != "" {
		outDir = opts.OutDir
	}

	r := executor.NewWithVars(baseVars).
		WithParallel(opts.Parallel).
		WithFailFast(opts.FailFast).
		WithTimeout(timeout).
		WithRateLimit(rps).
		WithSeed(seed).
		WithSink(reporter.NewConsole(cmd.OutOrStdout()))

	v, err := loadContract(opts.OpenAPIPath, opts.SuitePath, suite)
	if err != nil {
		return fmt.Errorf("openapi load: %w", err)
	}
	if v != nil {
		r = r.WithContract(v).WithContractAll(opts.Contract)
	} else if opts.Contract || opts.CoverageMin >= 0 {
		return errors.New("--contract and --coverage-min need an OpenAPI document")
	}

	log.WithFields(logger.Fields{
		"suite":    suite.Name,
		"base_url": baseVars[mercado.BaseURLVar],
		"timeout":  timeout.String(),
	}).Info("starting run")

	res, err := r.RunSuite(cmd.Context(), suite)
	if res == nil {
		return fmt.Errorf("execute: %w", err)
	}
	if err != nil {
		log.WithError(err).Warn("reporting failed")
	}

	if err := writeArtifacts(outDir, suite.Name, opts, res); err != nil {
		return err
	}

	if v != nil {
		if err := writeFile(filepath.Join(outDir, "coverage.json"), func(w io.Writer) error {
			return reporter.WriteCoverage(w, v.Doc(), r.Covered())
		}); err != nil {
			return err
		}
		if opts.CoverageMin >= 0 {
			rep := reporter.ComputeCoverage(v.Doc(), r.Covered())
			if rep.Percent+1e-9 < opts.CoverageMin {
				return fmt.Errorf("%w: coverage %.2f%% below %.2f%%", ErrSuiteFailed, rep.Percent, opts.CoverageMin)
			}
		}
	}

	if !res.Passed {
		return ErrSuiteFailed
	}
	return nil
}

// runVars layers base variables: config, then env files, then --var, then
// --base-url.
func runVars(configBaseURL string, opts *RunOptions) (map[string]string, error) {
	out := mercado.Vars(configBaseURL)

	fromFiles, err := vars.LoadFiles(opts.EnvFiles)
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	assigned, err := vars.ParseAssignments(opts.Vars)
	if err != nil {
		return nil, fmt.Errorf("--var: %w", err)
	}
	for _, m := range []map[string]string{fromFiles, assigned} {
		for k, v := range m {
			out[k] = v
		}
	}
	if opts.BaseURL != "" {
		out[mercado.BaseURLVar] = mercado.Vars(opts.BaseURL)[mercado.BaseURLVar]
	}
	return out, nil
}

func writeArtifacts(outDir, suiteName string, opts *RunOptions, res *executor.SuiteResult) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("mkdir out: %w", err)
	}

	var jsonPath string
	if opts.JSON {
		jsonPath = filepath.Join(outDir, "results.json")
		if err := writeFile(jsonPath, func(w io.Writer) error {
			return reporter.WriteJSON(w, res)
		}); err != nil {
			return err
		}
	}
	if opts.JUnit {
		if err := writeFile(filepath.Join(outDir, "junit.xml"), func(w io.Writer) error {
			return reporter.WriteJUnit(w, suiteName, res)
		}); err != nil {
			return err
		}
	}
	if opts.HTML {
		// Render from results.json when it exists so both artifacts agree.
		return writeFile(filepath.Join(outDir, "report.html"), func(w io.Writer) error {
			if jsonPath != "" {
				return reporter.WriteHTMLFromJSONPath(w, suiteName, jsonPath)
			}
			return reporter.WriteHTML(w, suiteName, res)
		})
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
