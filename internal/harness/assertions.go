package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/undoredo/internal/canonical"
)

// AssertionError describes one failed expectation.
type AssertionError struct {
	Field    string       // expect field that failed
	Expected string       // human-readable expected outcome
	Actual   string       // human-readable actual outcome
	Trace    []TraceEvent // trace so far, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "expect %s failed\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nTrace:\n")
	for _, event := range e.Trace {
		switch event.Kind {
		case KindExec:
			fmt.Fprintf(&buf, "  [%d] exec %s\n", event.Seq, event.SQL)
		case KindOp:
			fmt.Fprintf(&buf, "  [%d] %s", event.Seq, event.Op)
			if event.Error != "" {
				fmt.Fprintf(&buf, " -> %s", event.Error)
			}
			fmt.Fprintln(&buf)
		case KindSnapshot:
			fmt.Fprintf(&buf, "  [%d] snapshot %s\n", event.Seq, event.Snapshot)
		}
	}

	return buf.String()
}

// checkExpect evaluates every field set in e. Failures are returned as
// messages; err is reserved for store errors while reading state.
func (h *Harness) checkExpect(ctx context.Context, e *Expect, trace []TraceEvent) ([]string, error) {
	var failures []string
	fail := func(field string, expected, actual any) {
		failures = append(failures, (&AssertionError{
			Field:    field,
			Expected: fmt.Sprint(expected),
			Actual:   fmt.Sprint(actual),
			Trace:    trace,
		}).Error())
	}

	state := captureState(h.engine)

	if e.UndoStack != nil {
		if want := toPairs(*e.UndoStack); !reflect.DeepEqual(want, state.UndoStack) {
			fail("undo_stack", want, state.UndoStack)
		}
	}
	if e.RedoStack != nil {
		if want := toPairs(*e.RedoStack); !reflect.DeepEqual(want, state.RedoStack) {
			fail("redo_stack", want, state.RedoStack)
		}
	}
	if e.FirstLog != nil && *e.FirstLog != state.FirstLog {
		fail("firstlog", *e.FirstLog, state.FirstLog)
	}
	if e.Frozen != nil && *e.Frozen != state.Frozen {
		fail("frozen", *e.Frozen, state.Frozen)
	}
	if e.Active != nil && *e.Active != state.Active {
		fail("active", *e.Active, state.Active)
	}

	if e.LogSize != nil {
		size := 0
		if state.Active {
			entries, err := h.store.LogEntries(ctx)
			if err != nil {
				return nil, err
			}
			size = len(entries)
		}
		if size != *e.LogSize {
			fail("log_size", *e.LogSize, size)
		}
	}

	for _, table := range canonical.SortedKeys(e.Rows) {
		actual, err := h.readTable(ctx, table)
		if err != nil {
			return nil, err
		}
		want := make([]any, len(e.Rows[table]))
		for i, row := range e.Rows[table] {
			want[i] = row
		}

		wantJSON, err := canonical.Marshal(want)
		if err != nil {
			return nil, fmt.Errorf("expect.rows.%s: %w", table, err)
		}
		gotJSON, err := canonical.Marshal(actual)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", table, err)
		}
		if string(wantJSON) != string(gotJSON) {
			fail("rows."+table, string(wantJSON), string(gotJSON))
		}
	}

	if e.MatchesSnapshot != "" {
		fp, err := h.fingerprint(ctx)
		if err != nil {
			return nil, err
		}
		if fp != h.snapshots[e.MatchesSnapshot] {
			fail("matches_snapshot", "tables equal to snapshot "+e.MatchesSnapshot, "tables differ")
		}
	}

	return failures, nil
}

// toPairs converts validated [begin, end] lists; never nil.
func toPairs(frames [][]int64) [][2]int64 {
	out := make([][2]int64, len(frames))
	for i, f := range frames {
		out[i] = [2]int64{f[0], f[1]}
	}
	return out
}
