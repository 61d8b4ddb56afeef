package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceJSON_Canonical(t *testing.T) {
	result := NewResult()
	result.addEvent(TraceEvent{Seq: 1, Kind: KindExec, SQL: "SELECT '<a&b>'"})
	result.addEvent(TraceEvent{
		Seq:   2,
		Kind:  KindOp,
		Op:    OpBarrier,
		State: &State{Active: true, FirstLog: 2, UndoStack: [][2]int64{{1, 1}}, RedoStack: [][2]int64{}},
	})

	got, err := TraceJSON("canonical", result)
	require.NoError(t, err)

	want := `{"scenario_name":"canonical","trace":[` +
		`{"kind":"exec","seq":1,"sql":"SELECT '<a&b>'"},` +
		`{"kind":"op","op":"barrier","seq":2,"state":{"active":true,"firstlog":2,"frozen":false,"redo_stack":[],"undo_stack":[[1,1]]}}]}`
	assert.Equal(t, want, string(got))
}

func TestTraceJSON_EmptyTrace(t *testing.T) {
	got, err := TraceJSON("empty", NewResult())
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"empty","trace":[]}`, string(got))
}

func TestTraceFingerprint(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/undo_insert.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	a, err := TraceFingerprint(scenario.Name, result)
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := TraceFingerprint("renamed", result)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRunWithGolden_MixedFrame(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/mixed_frame.yaml")
	require.NoError(t, err)

	require.NoError(t, RunWithGolden(t, scenario))
}
