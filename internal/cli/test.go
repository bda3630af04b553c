package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/axiskeys/storefront/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run cart scenarios",
		Long: `Execute scripted cart scenarios and report their expectations.

Each YAML file in the directory is run against a fresh in-memory cart
with deterministic clocks and IDs.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenarios)

Examples:
  storefront test ./scenarios
  storefront test ./scenarios --filter "offline_*"
  storefront test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runScenarios(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return WrapExitError(ExitCommandError, "find scenarios", err)
	}
	if opts.Filter != "" {
		files = filterScenarios(files, opts.Filter)
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, "no scenarios matched")
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	summary := TestResult{}

	for _, path := range files {
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("load %s", filepath.Base(path)), err)
		}

		f.VerboseLog("running %s: %s", scenario.Name, scenario.Description)
		result, err := harness.Run(scenario)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("run %s", scenario.Name), err)
		}

		sr := ScenarioResult{Name: scenario.Name, Pass: result.Passed(), Errors: result.Failures}
		summary.Scenarios = append(summary.Scenarios, sr)
		summary.Total++
		if sr.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if f.Format == "json" {
		if err := f.Success(summary); err != nil {
			return err
		}
	} else {
		for _, sr := range summary.Scenarios {
			status := "PASS"
			if !sr.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(f.Writer, "%s  %s\n", status, sr.Name)
			for _, e := range sr.Errors {
				fmt.Fprintf(f.Writer, "      %s\n", e)
			}
		}
		fmt.Fprintf(f.Writer, "%d scenarios: %d passed, %d failed\n", summary.Total, summary.Passed, summary.Failed)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	return nil
}

func filterScenarios(files []string, pattern string) []string {
	out := files[:0]
	for _, path := range files {
		name := filepath.Base(path)
		if ok, _ := filepath.Match(pattern, name); ok {
			out = append(out, path)
			continue
		}
		if ok, _ := filepath.Match(pattern+".yaml", name); ok {
			out = append(out, path)
		}
	}
	return out
}
