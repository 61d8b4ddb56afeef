package undo

import (
	"context"
	"errors"
	"fmt"
)

// ErrDispatcherStopped is returned by Do after Stop or after Run has exited.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// CommandKind names an operation submitted to a Dispatcher.
type CommandKind string

const (
	CmdActivate   CommandKind = "activate"
	CmdDeactivate CommandKind = "deactivate"
	CmdFreeze     CommandKind = "freeze"
	CmdUnfreeze   CommandKind = "unfreeze"
	CmdBarrier    CommandKind = "barrier"
	CmdUndo       CommandKind = "undo"
	CmdRedo       CommandKind = "redo"
	CmdStatus     CommandKind = "status"

	// CmdExec runs application SQL on the engine's connection.
	CmdExec CommandKind = "exec"
	// CmdQuery runs application SQL and returns its rows.
	CmdQuery CommandKind = "query"
)

// Command is one unit of work for the Dispatcher.
type Command struct {
	Kind   CommandKind
	Tables []string // CmdActivate
	SQL    string   // CmdExec, CmdQuery
	Args   []any    // CmdExec, CmdQuery
}

// Result is what a command produced. Status is always the engine state after
// the command ran.
type Result struct {
	Status       Status
	RowsAffected int64
	Columns      []string
	Rows         [][]any
}

// Tracker observes each executed command. Implemented by metrics.Metrics.
type Tracker interface {
	Track(op string, fn func() error) error
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTracker wraps every command in t.Track.
func WithTracker(t Tracker) DispatcherOption {
	return func(d *Dispatcher) {
		d.tracker = t
	}
}

// Dispatcher serializes access to one Engine.
//
// Commands from any goroutine are queued in FIFO order and executed one at a
// time by Run, which must be called from exactly one goroutine. Application
// SQL goes through the same queue so it never interleaves with a step.
//
// Thread-safety model:
//   - Do(), Stop(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Dispatcher struct {
	engine  *Engine
	queue   *commandQueue
	tracker Tracker
}

// NewDispatcher creates a dispatcher for an engine.
func NewDispatcher(e *Engine, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		engine: e,
		queue:  newCommandQueue(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes queued commands until ctx is cancelled or Stop is called.
// Commands queued before Stop are drained first. When ctx is cancelled,
// commands still queued fail with the context error.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.engine.logger.Debug("dispatcher starting")

	for {
		req, ok := d.queue.TryDequeue()
		if ok {
			res, err := d.execute(ctx, req.cmd)
			req.done <- outcome{result: res, err: err}
			continue
		}

		select {
		case <-ctx.Done():
			d.engine.logger.Debug("dispatcher stopping: context cancelled")
			d.queue.Close()
			d.failPending(ctx.Err())
			return ctx.Err()

		case <-d.queue.Wait():
			// A leftover signal can arrive after its request was already
			// dequeued, so only a closed and empty queue ends the loop.
			if d.queue.Closed() && d.queue.Len() == 0 {
				d.engine.logger.Debug("dispatcher stopping: queue closed")
				return nil
			}
		}
	}
}

// Do submits a command and waits for its result.
//
// If ctx ends while waiting, Do returns ctx.Err(); the command may still run.
func (d *Dispatcher) Do(ctx context.Context, cmd Command) (Result, error) {
	req := request{cmd: cmd, done: make(chan outcome, 1)}
	if !d.queue.Enqueue(req) {
		return Result{}, ErrDispatcherStopped
	}

	select {
	case out := <-req.done:
		return out.result, out.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Stop closes the queue. Run returns once queued commands are drained.
func (d *Dispatcher) Stop() {
	d.queue.Close()
}

// failPending answers every queued request with err.
func (d *Dispatcher) failPending(err error) {
	for {
		req, ok := d.queue.TryDequeue()
		if !ok {
			return
		}
		req.done <- outcome{err: err}
	}
}

// execute runs one command on the Run goroutine.
func (d *Dispatcher) execute(ctx context.Context, cmd Command) (Result, error) {
	var res Result
	run := func() error {
		var err error
		res, err = d.apply(ctx, cmd)
		return err
	}

	var err error
	if d.tracker != nil {
		err = d.tracker.Track(string(cmd.Kind), run)
	} else {
		err = run()
	}

	res.Status = d.engine.Status()
	return res, err
}

func (d *Dispatcher) apply(ctx context.Context, cmd Command) (Result, error) {
	e := d.engine

	switch cmd.Kind {
	case CmdActivate:
		return Result{}, e.Activate(ctx, cmd.Tables...)
	case CmdDeactivate:
		return Result{}, e.Deactivate(ctx)
	case CmdFreeze:
		return Result{}, e.Freeze(ctx)
	case CmdUnfreeze:
		return Result{}, e.Unfreeze(ctx)
	case CmdBarrier:
		return Result{}, e.Barrier(ctx)
	case CmdUndo:
		return Result{}, e.Undo(ctx)
	case CmdRedo:
		return Result{}, e.Redo(ctx)
	case CmdStatus:
		return Result{}, nil
	case CmdExec:
		r, err := e.store.Exec(ctx, cmd.SQL, cmd.Args...)
		if err != nil {
			return Result{}, fmt.Errorf("exec: %w", err)
		}
		n, err := r.RowsAffected()
		if err != nil {
			return Result{}, fmt.Errorf("exec: %w", err)
		}
		return Result{RowsAffected: n}, nil
	case CmdQuery:
		return d.query(ctx, cmd)
	default:
		return Result{}, fmt.Errorf("unknown command %q", cmd.Kind)
	}
}

func (d *Dispatcher) query(ctx context.Context, cmd Command) (Result, error) {
	rows, err := d.engine.store.Query(ctx, cmd.SQL, cmd.Args...)
	if err != nil {
		return Result{}, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("query: columns: %w", err)
	}

	res := Result{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, fmt.Errorf("query: scan: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("query: %w", err)
	}
	return res, nil
}
