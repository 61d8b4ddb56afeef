package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/undoredo/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
	Watch  bool   // re-run when scenario or golden files change
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

// watchDebounce groups the burst of events an editor save produces.
const watchDebounce = 100 * time.Millisecond

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run undo/redo scenarios",
		Long: `Run YAML scenarios against fresh in-memory databases.

Each scenario's trace is compared with <scenarios-dir>/golden/<file>.golden
when that file exists.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  undoredo test ./scenarios
  undoredo test ./scenarios --filter "undo_*"
  undoredo test ./scenarios --update
  undoredo test ./scenarios --watch`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
			}
			if opts.Watch && opts.Update {
				return NewExitError(ExitCommandError, "--watch and --update cannot be combined")
			}
			if opts.Watch {
				return watchTests(cmd.Context(), opts, dir, cmd.OutOrStdout())
			}
			return runTests(opts, dir, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "re-run scenarios when files change")

	return cmd
}

func runTests(opts *TestOptions, dir string, w io.Writer) error {
	scenarioFiles, err := harness.FindScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(w, result)
		}
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(scenarioFile, opts)
		if opts.Format != "json" {
			printScenario(w, scenResult, opts.Update)
		}

		result.Scenarios = append(result.Scenarios, scenResult)
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(w, result)
	}
	return outputTestText(w, result)
}

// runScenario executes one scenario file and checks its golden trace.
func runScenario(scenarioFile string, opts *TestOptions) ScenarioResult {
	fail := func(name, format string, args ...any) ScenarioResult {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf(format, args...)}}
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return fail(filepath.Base(scenarioFile), "failed to load scenario: %v", err)
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return fail(scenario.Name, "execution failed: %v", err)
	}

	trace, err := harness.TraceJSON(scenario.Name, result)
	if err != nil {
		return fail(scenario.Name, "failed to marshal trace: %v", err)
	}

	goldenPath := goldenFilePath(scenarioFile)
	if opts.Update {
		if err := writeGolden(goldenPath, trace); err != nil {
			return fail(scenario.Name, "failed to update golden file: %v", err)
		}
	} else {
		golden, err := os.ReadFile(goldenPath)
		switch {
		case os.IsNotExist(err):
			// No golden file: expectations alone decide.
		case err != nil:
			return fail(scenario.Name, "failed to read golden file: %v", err)
		case string(golden) != string(trace):
			result.AddError("trace does not match golden file (run with --update to regenerate)")
		}
	}

	return ScenarioResult{
		Name:   scenario.Name,
		Pass:   result.Pass,
		Errors: result.Errors,
	}
}

func printScenario(w io.Writer, r ScenarioResult, updated bool) {
	if !r.Pass {
		fmt.Fprintf(w, "✗ %s\n", r.Name)
		for _, e := range r.Errors {
			for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
		return
	}
	if updated {
		fmt.Fprintf(w, "✓ %s (golden updated)\n", r.Name)
		return
	}
	fmt.Fprintf(w, "✓ %s\n", r.Name)
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(path string, trace []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, trace, 0644)
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(w io.Writer, result TestResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    CodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(w io.Writer, result TestResult) error {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}

// watchTests runs the scenarios, then again after every change under dir,
// until ctx ends. Failures are reported but do not stop the loop.
func watchTests(ctx context.Context, opts *TestOptions, dir string, w io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create file watcher", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, dir); err != nil {
		return WrapExitError(ExitCommandError, "failed to watch scenarios", err)
	}

	rerun := func() {
		if err := runTests(opts, dir, w); err != nil && GetExitCode(err) == ExitCommandError {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
		fmt.Fprintln(w, "Watching for changes...")
	}
	rerun()

	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addWatchDirs(watcher, event.Name)
				}
			}
			if relevantChange(event) {
				timer = time.After(watchDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "watch error: %v\n", err)

		case <-timer:
			timer = nil
			rerun()
		}
	}
}

// addWatchDirs watches root and every directory below it.
func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func relevantChange(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	switch filepath.Ext(event.Name) {
	case ".yaml", ".yml", ".golden":
		return true
	}
	return false
}
