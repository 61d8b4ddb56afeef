package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/undoredo/internal/trigger"
	"github.com/roach88/undoredo/internal/undo"
)

// Scenario is one undo/redo test case.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup is plain SQL run before activation. It is not recorded.
	Setup []string `yaml:"setup,omitempty"`

	// Watch lists the tables activated before the first step. When empty,
	// the steps must activate explicitly.
	Watch []string `yaml:"watch,omitempty"`

	// Epoch is the token every activation receives.
	// Defaults to testutil.DefaultEpoch.
	Epoch string `yaml:"epoch,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step is exactly one of Exec, Op, Snapshot or Expect.
type Step struct {
	Exec string `yaml:"exec,omitempty"`

	Op string `yaml:"op,omitempty"`
	// Tables overrides Scenario.Watch for op: activate.
	Tables []string `yaml:"tables,omitempty"`
	// ExpectError is the error code the op must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`

	Snapshot string `yaml:"snapshot,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks engine state. Nil fields are not checked.
type Expect struct {
	UndoStack *[][]int64 `yaml:"undo_stack,omitempty"`
	RedoStack *[][]int64 `yaml:"redo_stack,omitempty"`
	FirstLog  *int64     `yaml:"firstlog,omitempty"`
	Frozen    *bool      `yaml:"frozen,omitempty"`
	Active    *bool      `yaml:"active,omitempty"`

	// LogSize is the number of rows in the change log.
	LogSize *int `yaml:"log_size,omitempty"`

	// Rows maps a table to its rows in rowid order.
	Rows map[string][][]any `yaml:"rows,omitempty"`

	// MatchesSnapshot names an earlier snapshot the tables must match.
	MatchesSnapshot string `yaml:"matches_snapshot,omitempty"`
}

// Op names accepted in a step.
const (
	OpActivate   = "activate"
	OpDeactivate = "deactivate"
	OpFreeze     = "freeze"
	OpUnfreeze   = "unfreeze"
	OpBarrier    = "barrier"
	OpUndo       = "undo"
	OpRedo       = "redo"
)

var knownOps = map[string]bool{
	OpActivate: true, OpDeactivate: true, OpFreeze: true, OpUnfreeze: true,
	OpBarrier: true, OpUndo: true, OpRedo: true,
}

var knownCodes = map[string]bool{
	string(undo.ErrCodeAlreadyFrozen): true,
	string(undo.ErrCodeNotFrozen):     true,
	string(undo.ErrCodeStackEmpty):    true,
	string(undo.ErrCodeStoreFailure):  true,
	string(undo.ErrCodeInvalidTable):  true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarioFiles lists the .yaml and .yml files under dir whose base
// name (without extension) matches the glob filter. An empty filter
// matches everything.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
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

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, sql := range s.Setup {
		if strings.TrimSpace(sql) == "" {
			return fmt.Errorf("setup[%d]: empty statement", i)
		}
	}
	for _, table := range s.Watch {
		if !trigger.ValidTable(table) {
			return fmt.Errorf("watch: invalid table name %q", table)
		}
	}

	snapshots := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(step, snapshots); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step, snapshots map[string]bool) error {
	kinds := 0
	for _, set := range []bool{step.Exec != "", step.Op != "", step.Snapshot != "", step.Expect != nil} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return fmt.Errorf("exactly one of exec, op, snapshot or expect is required")
	}

	if step.Op == "" && (step.ExpectError != "" || len(step.Tables) > 0) {
		return fmt.Errorf("expect_error and tables are only valid with op")
	}

	switch {
	case step.Op != "":
		if !knownOps[step.Op] {
			return fmt.Errorf("unknown op %q", step.Op)
		}
		if len(step.Tables) > 0 && step.Op != OpActivate {
			return fmt.Errorf("tables is only valid with op: activate")
		}
		if step.ExpectError != "" && !knownCodes[step.ExpectError] {
			return fmt.Errorf("unknown error code %q", step.ExpectError)
		}

	case step.Snapshot != "":
		if snapshots[step.Snapshot] {
			return fmt.Errorf("duplicate snapshot %q", step.Snapshot)
		}
		snapshots[step.Snapshot] = true

	case step.Expect != nil:
		return validateExpect(step.Expect, snapshots)
	}
	return nil
}

func validateExpect(e *Expect, snapshots map[string]bool) error {
	if e.UndoStack == nil && e.RedoStack == nil && e.FirstLog == nil &&
		e.Frozen == nil && e.Active == nil && e.LogSize == nil &&
		e.Rows == nil && e.MatchesSnapshot == "" {
		return fmt.Errorf("expect must check at least one field")
	}

	for name, stack := range map[string]*[][]int64{"undo_stack": e.UndoStack, "redo_stack": e.RedoStack} {
		if stack == nil {
			continue
		}
		for j, pair := range *stack {
			if len(pair) != 2 {
				return fmt.Errorf("expect.%s[%d]: frame must be [begin, end]", name, j)
			}
		}
	}

	for table := range e.Rows {
		if !trigger.ValidTable(table) {
			return fmt.Errorf("expect.rows: invalid table name %q", table)
		}
	}

	if e.MatchesSnapshot != "" && !snapshots[e.MatchesSnapshot] {
		return fmt.Errorf("expect.matches_snapshot: no earlier snapshot %q", e.MatchesSnapshot)
	}
	return nil
}
