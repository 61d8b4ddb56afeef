package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/undoredo/internal/canonical"
	"github.com/roach88/undoredo/internal/store"
	"github.com/roach88/undoredo/internal/testutil"
	"github.com/roach88/undoredo/internal/trigger"
	"github.com/roach88/undoredo/internal/undo"
)

// Harness executes one scenario against its own store and engine.
type Harness struct {
	store     *store.Store
	engine    *undo.Engine
	seq       *testutil.Sequence
	scenario  *Scenario
	snapshots map[string]string // name -> fingerprint
	logger    *slog.Logger
}

// Option configures a run.
type Option func(*Harness)

// WithLogger routes engine and harness logs to l. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. The
// returned error covers failures that prevent the scenario from running at
// all (setup SQL, store errors while reading state); failed ops and
// expectations are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:     st,
		seq:       testutil.NewSequence(),
		scenario:  scenario,
		snapshots: make(map[string]string),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.engine = undo.New(st,
		undo.WithLogger(h.logger),
		undo.WithEpochGenerator(testutil.FixedEpoch(scenario.Epoch)),
	)

	ctx := context.Background()

	if err := h.executeSetup(ctx); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	if len(scenario.Watch) > 0 {
		h.executeOp(ctx, -1, Step{Op: OpActivate}, result)
	}

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"events", len(result.Trace),
	)
	return result, nil
}

func (h *Harness) executeSetup(ctx context.Context) error {
	for i, sql := range h.scenario.Setup {
		if _, err := h.store.Exec(ctx, sql); err != nil {
			return fmt.Errorf("setup[%d] %q: %w", i, sql, err)
		}
	}
	return nil
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	switch {
	case step.Exec != "":
		h.executeExec(ctx, i, step.Exec, result)
		return nil
	case step.Op != "":
		h.executeOp(ctx, i, step, result)
		return nil
	case step.Snapshot != "":
		return h.executeSnapshot(ctx, step.Snapshot, result)
	case step.Expect != nil:
		failures, err := h.checkExpect(ctx, step.Expect, result.Trace)
		if err != nil {
			return err
		}
		for _, f := range failures {
			result.AddError(fmt.Sprintf("steps[%d]: %s", i, f))
		}
		return nil
	default:
		return fmt.Errorf("empty step")
	}
}

func (h *Harness) executeExec(ctx context.Context, i int, sql string, result *Result) {
	event := TraceEvent{Seq: h.seq.Next(), Kind: KindExec, SQL: sql}

	if _, err := h.store.Exec(ctx, sql); err != nil {
		event.Error = ErrCodeSQL
		result.AddError(fmt.Sprintf("steps[%d]: exec %q: %v", i, sql, err))
	}

	result.addEvent(event)
	h.logger.Debug("exec step", "seq", event.Seq, "sql", sql, "error", event.Error)
}

// executeOp runs one engine operation. i is -1 for the implicit activation
// of Scenario.Watch.
func (h *Harness) executeOp(ctx context.Context, i int, step Step, result *Result) {
	event := TraceEvent{Seq: h.seq.Next(), Kind: KindOp, Op: step.Op}

	err := h.apply(ctx, step)
	code := string(undo.CodeOf(err))
	if err != nil && code == "" {
		code = "ERROR"
	}
	event.Error = code
	event.State = captureState(h.engine)
	result.addEvent(event)

	where := fmt.Sprintf("steps[%d]", i)
	if i < 0 {
		where = "watch"
	}

	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("%s: op %s: %v", where, step.Op, err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("%s: op %s: expected error %s, got success", where, step.Op, step.ExpectError))
	case step.ExpectError != "" && code != step.ExpectError:
		result.AddError(fmt.Sprintf("%s: op %s: expected error %s, got %v", where, step.Op, step.ExpectError, err))
	}

	h.logger.Debug("op step", "seq", event.Seq, "op", step.Op, "error", code)
}

func (h *Harness) apply(ctx context.Context, step Step) error {
	e := h.engine
	switch step.Op {
	case OpActivate:
		tables := step.Tables
		if len(tables) == 0 {
			tables = h.scenario.Watch
		}
		return e.Activate(ctx, tables...)
	case OpDeactivate:
		return e.Deactivate(ctx)
	case OpFreeze:
		return e.Freeze(ctx)
	case OpUnfreeze:
		return e.Unfreeze(ctx)
	case OpBarrier:
		return e.Barrier(ctx)
	case OpUndo:
		return e.Undo(ctx)
	case OpRedo:
		return e.Redo(ctx)
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func (h *Harness) executeSnapshot(ctx context.Context, name string, result *Result) error {
	fp, err := h.fingerprint(ctx)
	if err != nil {
		return fmt.Errorf("snapshot %q: %w", name, err)
	}
	h.snapshots[name] = fp
	result.addEvent(TraceEvent{Seq: h.seq.Next(), Kind: KindSnapshot, Snapshot: name})
	return nil
}

// tables returns the tables snapshots cover: those of the current
// activation, else the scenario's watch list.
func (h *Harness) tables() []string {
	if t := h.engine.Tables(); len(t) > 0 {
		return t
	}
	return h.scenario.Watch
}

func (h *Harness) fingerprint(ctx context.Context) (string, error) {
	contents := make(map[string]any)
	for _, table := range h.tables() {
		rows, err := h.readTable(ctx, table)
		if err != nil {
			return "", err
		}
		contents[table] = rows
	}
	return canonical.Fingerprint(canonical.DomainSnapshot, contents)
}

// readTable returns every row of table in rowid order. TEXT values that the
// driver hands back as bytes are converted to strings.
func (h *Harness) readTable(ctx context.Context, table string) ([]any, error) {
	if !trigger.ValidTable(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	rows, err := h.store.Query(ctx, "SELECT * FROM "+table+" ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}

	out := []any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("read %s: scan: %w", table, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return out, nil
}
