package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/jwpure/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
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
		Short: "Run allocation scenarios",
		Long: `Run allocation scenarios using the harness framework.

Each scenario names a slot CSV and a plan, runs every pass in a fresh
in-memory database and checks its assertions. When golden files exist
next to the scenario (golden/<name>.golden and golden/<name>_claimed.golden)
the pass history and claimed slots must match them too.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  jwpure test ./scenarios
  jwpure test ./scenarios --filter "cycle-*"
  jwpure test ./scenarios --update
  jwpure test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", scenariosDir), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if formatter.Format == "json" {
			return outputTestJSON(formatter, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}

	for _, scenarioFile := range scenarioFiles {
		formatter.VerboseLog("Running %s", scenarioFile)
		scenResult := runScenario(scenarioFile, opts, formatter)
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.Format == "json" {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

// findScenarioFiles finds all YAML scenario files in a directory.
// Files under golden/ directories are skipped.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if info.Name() == "golden" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario executes a single scenario and returns the result.
func runScenario(scenarioFile string, opts *TestOptions, formatter *OutputFormatter) ScenarioResult {
	text := formatter.Format != "json"
	w := formatter.Writer

	fail := func(name string, errs ...string) ScenarioResult {
		if text {
			fmt.Fprintf(w, "✗ %s\n", name)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		return ScenarioResult{Name: name, Pass: false, Errors: errs}
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return fail(filepath.Base(scenarioFile), fmt.Sprintf("failed to load scenario: %v", err))
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return fail(scenario.Name, fmt.Sprintf("execution failed: %v", err))
	}

	golden := newGoldenFiles(scenarioFile)

	if opts.Update {
		if err := golden.write(scenario, result); err != nil {
			return fail(scenario.Name, fmt.Sprintf("failed to update golden files: %v", err))
		}
		if text {
			fmt.Fprintf(w, "✓ %s (golden updated)\n", scenario.Name)
		}
		return ScenarioResult{Name: scenario.Name, Pass: true}
	}

	// Without golden files only the assertions count.
	if golden.exists() {
		mismatches, err := golden.compare(scenario, result)
		if err != nil {
			return fail(scenario.Name, fmt.Sprintf("golden comparison failed: %v", err))
		}
		if len(mismatches) > 0 {
			errs := make([]string, len(mismatches))
			for i, m := range mismatches {
				errs[i] = fmt.Sprintf("%s does not match golden file (run with --update to regenerate)", m)
			}
			return fail(scenario.Name, errs...)
		}
	}

	if !result.Pass {
		return fail(scenario.Name, result.Errors...)
	}

	if text {
		fmt.Fprintf(w, "✓ %s\n", scenario.Name)
	}
	return ScenarioResult{Name: scenario.Name, Pass: true}
}

// goldenFiles locates the golden files of one scenario file.
type goldenFiles struct {
	passes  string // pass history (JSON)
	claimed string // claimed slots (CSV)
}

// newGoldenFiles returns the golden paths for scenarioFile:
// <dir>/golden/<name>.golden and <dir>/golden/<name>_claimed.golden.
func newGoldenFiles(scenarioFile string) goldenFiles {
	dir := filepath.Join(filepath.Dir(scenarioFile), "golden")
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return goldenFiles{
		passes:  filepath.Join(dir, name+".golden"),
		claimed: filepath.Join(dir, name+"_claimed.golden"),
	}
}

func (g goldenFiles) exists() bool {
	_, err := os.Stat(g.passes)
	return err == nil
}

func render(scenario *harness.Scenario, result *harness.Result) (passes, claimed []byte, err error) {
	if passes, err = harness.Snapshot(scenario.Name, result); err != nil {
		return nil, nil, fmt.Errorf("failed to marshal passes: %w", err)
	}
	if claimed, err = harness.ClaimedCSV(result); err != nil {
		return nil, nil, fmt.Errorf("failed to render claimed slots: %w", err)
	}
	return passes, claimed, nil
}

// write stores the current result as the golden files.
func (g goldenFiles) write(scenario *harness.Scenario, result *harness.Result) error {
	passes, claimed, err := render(scenario, result)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(g.passes), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(g.passes, passes, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	if err := os.WriteFile(g.claimed, claimed, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compare returns the base names of golden files that differ from result.
// A missing claimed file counts as a mismatch.
func (g goldenFiles) compare(scenario *harness.Scenario, result *harness.Result) ([]string, error) {
	passes, claimed, err := render(scenario, result)
	if err != nil {
		return nil, err
	}

	var mismatches []string
	for _, f := range []struct {
		path string
		data []byte
	}{
		{g.passes, passes},
		{g.claimed, claimed},
	} {
		want, err := os.ReadFile(f.path)
		if os.IsNotExist(err) {
			mismatches = append(mismatches, filepath.Base(f.path))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read golden file: %w", err)
		}
		if !bytes.Equal(want, f.data) {
			mismatches = append(mismatches, filepath.Base(f.path))
		}
	}
	return mismatches, nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status:  status,
		Data:    result,
		TraceID: formatter.TraceID,
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	if err := formatter.encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(formatter *OutputFormatter, result TestResult) error {
	w := formatter.Writer

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
