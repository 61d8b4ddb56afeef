package harness

import "github.com/roach88/undoredo/internal/undo"

// Trace event kinds.
const (
	KindExec     = "exec"
	KindOp       = "op"
	KindSnapshot = "snapshot"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	Kind     string `json:"kind"`
	SQL      string `json:"sql,omitempty"`
	Op       string `json:"op,omitempty"`
	Snapshot string `json:"snapshot,omitempty"`

	// Error is the engine error code for a failed op, or SQL_ERROR for a
	// failed exec.
	Error string `json:"error,omitempty"`

	// State is the engine state after an op.
	State *State `json:"state,omitempty"`
}

// ErrCodeSQL marks a failed exec step in the trace.
const ErrCodeSQL = "SQL_ERROR"

// State is the part of engine state a trace records after each op.
type State struct {
	Active    bool       `json:"active"`
	Frozen    bool       `json:"frozen"`
	FirstLog  int64      `json:"firstlog"`
	UndoStack [][2]int64 `json:"undo_stack"`
	RedoStack [][2]int64 `json:"redo_stack"`
}

func captureState(e *undo.Engine) *State {
	s := e.Status()
	return &State{
		Active:    s.Active,
		Frozen:    s.Frozen,
		FirstLog:  s.FirstLog,
		UndoStack: pairs(e.UndoStack()),
		RedoStack: pairs(e.RedoStack()),
	}
}

// pairs flattens frames to [begin, end] pairs; never nil.
func pairs(frames []undo.Frame) [][2]int64 {
	out := make([][2]int64, len(frames))
	for i, f := range frames {
		out[i] = [2]int64{f.Begin, f.End}
	}
	return out
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every op and expect step succeeded.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEvent(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
