package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ontogen/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
	GoldenDir string // golden directory, defaults to <scenarios-dir>/golden
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
		Short: "Run compatibility scenarios",
		Long: `Run compatibility scenarios from YAML files.

Each scenario compiles a baseline and a candidate ontology, then checks
the compatibility level, required bump, version policy and migration plan
against its expectations and assertions. When golden files exist the
verdict and the migration SQL must match them too.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  ontogen test ./scenarios
  ontogen test ./scenarios --filter "book-*"
  ontogen test ./scenarios --update
  ontogen test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on the file name")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "golden file directory (default <scenarios-dir>/golden)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeIO, fmt.Sprintf("scenarios directory not found: %s", scenariosDir), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		_ = formatter.Error(ErrCodeIO, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		goldenDir = filepath.Join(scenariosDir, "golden")
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(formatter, result)
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(scenarioFile, goldenDir, opts)
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
			formatter.Check("%s", scenResult.Name)
		} else {
			result.Failed++
			formatter.Cross("%s", scenResult.Name)
			if opts.Format == "json" {
				continue
			}
			for _, e := range scenResult.Errors {
				for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
					fmt.Fprintf(formatter.Writer, "  %s\n", line)
				}
			}
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

// findScenarioFiles lists the scenario files of a directory, optionally
// filtered by a glob on the file name without extension.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	files, err := harness.FindScenarios(dir)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return files, nil
	}

	var matched []string
	for _, path := range files {
		base := filepath.Base(path)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		ok, err := filepath.Match(filter, name)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if ok {
			matched = append(matched, path)
		}
	}
	return matched, nil
}

// runScenario executes a single scenario and returns the result.
func runScenario(scenarioFile, goldenDir string, opts *TestOptions) ScenarioResult {
	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(scenarioFile),
			Pass:   false,
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Pass:   false,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	files, err := harness.GoldenFiles(scenario.Name, result)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Pass:   false,
			Errors: []string{fmt.Sprintf("failed to render golden files: %v", err)},
		}
	}

	if opts.Update {
		if err := updateGoldenFiles(goldenDir, files); err != nil {
			return ScenarioResult{
				Name:   scenario.Name,
				Pass:   false,
				Errors: []string{fmt.Sprintf("failed to update golden files: %v", err)},
			}
		}
	} else {
		mismatched, err := compareWithGolden(goldenDir, files)
		if err != nil {
			return ScenarioResult{
				Name:   scenario.Name,
				Pass:   false,
				Errors: []string{fmt.Sprintf("golden comparison failed: %v", err)},
			}
		}
		for _, name := range mismatched {
			result.AddError(fmt.Sprintf("golden file %s%s does not match (run with --update to regenerate)", name, harness.GoldenSuffix))
		}
	}

	return ScenarioResult{
		Name:   scenario.Name,
		Pass:   result.Pass,
		Errors: result.Errors,
	}
}

// updateGoldenFiles writes the current golden files.
func updateGoldenFiles(goldenDir string, files []harness.GoldenFile) error {
	if err := os.MkdirAll(goldenDir, 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(goldenDir, f.Name+harness.GoldenSuffix), f.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
	}
	return nil
}

// compareWithGolden returns the names of golden files whose content
// differs. A scenario without golden files relies on its assertions only.
func compareWithGolden(goldenDir string, files []harness.GoldenFile) ([]string, error) {
	var mismatched []string
	for _, f := range files {
		want, err := os.ReadFile(filepath.Join(goldenDir, f.Name+harness.GoldenSuffix))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read golden file: %w", err)
		}
		if !bytes.Equal(want, f.Data) {
			mismatched = append(mismatched, f.Name)
		}
	}
	return mismatched, nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	if result.Failed > 0 {
		if err := formatter.Error(ErrCodeTestFailed, fmt.Sprintf("%d scenario(s) failed", result.Failed), result); err != nil {
			return err
		}
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return formatter.Success(result)
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

	formatter.Check("All scenarios passed")
	return nil
}
