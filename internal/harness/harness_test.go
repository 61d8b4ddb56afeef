package harness

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, doc string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(doc))
	require.NoError(t, err)
	return s
}

func TestRun_TestdataGolden(t *testing.T) {
	files, err := FindScenarioFiles("testdata/scenarios", "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(f)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)

			require.NoError(t, AssertGolden(t, scenario.Name, result))
		})
	}
}

func TestRun_TraceIsDeterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/freeze_barrier.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := TraceJSON(scenario.Name, first)
	require.NoError(t, err)
	b, err := TraceJSON(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_WatchActivatesImplicitly(t *testing.T) {
	result, err := Run(mustParse(t, `
name: implicit
description: watch activates before the first step
setup: ["CREATE TABLE tbl1(a)"]
watch: [tbl1]
steps:
  - expect:
      active: true
      firstlog: 1
`))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 1)
	assert.Equal(t, KindOp, result.Trace[0].Kind)
	assert.Equal(t, OpActivate, result.Trace[0].Op)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
}

func TestRun_WatchOfMissingTableFails(t *testing.T) {
	result, err := Run(mustParse(t, `
name: missing
description: watch names a table that was never created
watch: [ghost]
steps:
  - expect:
      active: false
`))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.True(t, strings.HasPrefix(result.Errors[0], "watch: op activate:"), result.Errors[0])
	assert.Equal(t, "STORE_FAILURE", result.Trace[0].Error)
}

func TestRun_SetupErrorAborts(t *testing.T) {
	_, err := Run(mustParse(t, `
name: bad_setup
description: setup SQL does not parse
setup: ["CREATE TABLET tbl1(a)"]
steps:
  - op: barrier
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup[0]")
}

func TestRun_ExecErrorIsRecorded(t *testing.T) {
	result, err := Run(mustParse(t, `
name: bad_exec
description: a failing statement is traced and fails the run
steps:
  - exec: INSERT INTO nope VALUES(1)
`))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, ErrCodeSQL, result.Trace[0].Error)
	assert.Contains(t, result.Errors[0], "no such table")
}

func TestRun_ExpectedErrorMismatch(t *testing.T) {
	tests := []struct {
		name    string
		step    string
		wantErr string
	}{
		{
			name:    "unexpected success",
			step:    "{op: freeze, expect_error: ALREADY_FROZEN}",
			wantErr: "expected error ALREADY_FROZEN, got success",
		},
		{
			name:    "wrong code",
			step:    "{op: unfreeze, expect_error: STACK_EMPTY}",
			wantErr: "expected error STACK_EMPTY, got",
		},
		{
			name:    "unexpected failure",
			step:    "{op: undo}",
			wantErr: "op undo: undo: STACK_EMPTY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(mustParse(t, `
name: mismatch
description: op outcome differs from expect_error
setup: ["CREATE TABLE tbl1(a)"]
watch: [tbl1]
steps: [`+tt.step+`]
`))
			require.NoError(t, err)
			assert.False(t, result.Pass)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], tt.wantErr)
		})
	}
}

func TestRun_FailedExpectations(t *testing.T) {
	result, err := Run(mustParse(t, `
name: wrong
description: every expectation is off
setup: ["CREATE TABLE tbl1(a)"]
watch: [tbl1]
steps:
  - snapshot: before
  - exec: INSERT INTO tbl1 VALUES(23)
  - op: barrier
  - expect:
      undo_stack: []
      redo_stack: [[1, 1]]
      firstlog: 7
      frozen: true
      active: false
      log_size: 3
      rows:
        tbl1: [[24]]
      matches_snapshot: before
`))
	require.NoError(t, err)
	assert.False(t, result.Pass)

	fields := []string{
		"undo_stack", "redo_stack", "firstlog", "frozen", "active",
		"log_size", "rows.tbl1", "matches_snapshot",
	}
	require.Len(t, result.Errors, len(fields))
	for i, field := range fields {
		assert.Contains(t, result.Errors[i], "steps[3]: expect "+field+" failed")
	}
	assert.Contains(t, result.Errors[6], "Expected: [[24]]")
	assert.Contains(t, result.Errors[6], "Actual: [[23]]")
}

func TestRun_RowsCompareByValue(t *testing.T) {
	result, err := Run(mustParse(t, `
name: types
description: rows of every storage class compare canonically
setup:
  - CREATE TABLE t(i, r, s, n)
  - INSERT INTO t VALUES(1, 2.5, 'caf`+"\u00e9"+`', NULL)
steps:
  - expect:
      rows:
        t: [[1, 2.5, "cafe`+"\u0301"+`", null]]
`))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_SnapshotOfDroppedTableAborts(t *testing.T) {
	_, err := Run(mustParse(t, `
name: dropped
description: a snapshot cannot read a dropped watched table
setup: ["CREATE TABLE tbl1(a)"]
watch: [tbl1]
steps:
  - exec: DROP TABLE tbl1
  - snapshot: gone
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `snapshot "gone"`)
}

func TestRun_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Run(mustParse(t, `
name: logged
description: logs go to the supplied logger
setup: ["CREATE TABLE tbl1(a)"]
watch: [tbl1]
steps:
  - op: barrier
`), WithLogger(logger))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "undo activated")
	assert.Contains(t, out, "epoch=test-epoch-default")
	assert.Contains(t, out, "scenario finished")
}
