package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Field:    "undo_stack",
		Expected: "[[1 1]]",
		Actual:   "[]",
		Trace: []TraceEvent{
			{Seq: 1, Kind: KindOp, Op: OpActivate},
			{Seq: 2, Kind: KindExec, SQL: "INSERT INTO tbl1 VALUES(1)"},
			{Seq: 3, Kind: KindSnapshot, Snapshot: "s"},
			{Seq: 4, Kind: KindOp, Op: OpUndo, Error: "STACK_EMPTY"},
		},
	}

	want := "expect undo_stack failed\n" +
		"  Expected: [[1 1]]\n" +
		"  Actual: []\n" +
		"\nTrace:\n" +
		"  [1] activate\n" +
		"  [2] exec INSERT INTO tbl1 VALUES(1)\n" +
		"  [3] snapshot s\n" +
		"  [4] undo -> STACK_EMPTY\n"
	assert.Equal(t, want, err.Error())
}

func TestToPairs(t *testing.T) {
	assert.Equal(t, [][2]int64{}, toPairs(nil))
	assert.Equal(t, [][2]int64{{1, 1}, {2, 4}}, toPairs([][]int64{{1, 1}, {2, 4}}))
}
