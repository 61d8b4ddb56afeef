package undo

import (
	"context"
	"fmt"

	"github.com/roach88/undoredo/internal/store"
)

// Direction selects which stack a step consumes.
type Direction int

const (
	// DirUndo steps from the undo stack onto the redo stack.
	DirUndo Direction = iota + 1
	// DirRedo steps from the redo stack onto the undo stack.
	DirRedo
)

// String returns "undo" or "redo".
func (d Direction) String() string {
	switch d {
	case DirUndo:
		return "undo"
	case DirRedo:
		return "redo"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Undo reverts the most recent frame on the undo stack.
// Returns a STACK_EMPTY error if there is nothing to undo.
func (e *Engine) Undo(ctx context.Context) error {
	return e.Step(ctx, DirUndo)
}

// Redo reapplies the most recent frame on the redo stack.
// Returns a STACK_EMPTY error if there is nothing to redo.
func (e *Engine) Redo(ctx context.Context) error {
	return e.Step(ctx, DirRedo)
}

// Step moves one frame from the source stack of dir to the opposite stack.
//
// The frame's logged statements are read newest first, removed from the log
// and executed inside one transaction. Because the watched tables still carry
// their triggers, executing them logs the statements that reverse this step;
// those new rows form the frame pushed onto the destination stack.
//
// On any store error the transaction is rolled back and the stacks and
// interval boundary are left exactly as they were.
func (e *Engine) Step(ctx context.Context, dir Direction) error {
	if dir != DirUndo && dir != DirRedo {
		return fmt.Errorf("step: unknown direction %d", int(dir))
	}
	src, dst := e.stacks(dir)
	op := dir.String()

	frame, ok := src.peek()
	if !ok {
		return newStackEmpty(op)
	}
	if frame.Empty() {
		e.logger.Debug("stepping empty frame", "op", op, "begin", frame.Begin, "end", frame.End)
	}

	next, err := e.replay(ctx, frame)
	if err != nil {
		e.logger.Error("step failed",
			"op", op,
			"epoch", e.state.epoch,
			"begin", frame.Begin,
			"end", frame.End,
			"error", err,
		)
		return newStoreFailure(op, err)
	}

	src.pop()
	dst.push(next)
	e.state.firstlog = next.End + 1

	e.logger.Debug("step",
		"op", op,
		"epoch", e.state.epoch,
		"from", frame.String(),
		"to", next.String(),
		"firstlog", e.state.firstlog,
	)

	if e.observer != nil {
		e.observer.Reload()
	}
	e.refresh()
	return nil
}

// replay runs one frame inside a transaction and returns the frame covering
// the statements it logged.
func (e *Engine) replay(ctx context.Context, frame Frame) (Frame, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return Frame{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmts, err := store.RangeStatements(ctx, tx, frame.Begin, frame.End)
	if err != nil {
		return Frame{}, err
	}
	if err := store.DeleteRange(ctx, tx, frame.Begin, frame.End); err != nil {
		return Frame{}, err
	}

	// The new frame starts where the log ends once this frame is removed.
	last, err := store.MaxSeq(ctx, tx)
	if err != nil {
		return Frame{}, err
	}
	begin := last + 1

	for i, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return Frame{}, fmt.Errorf("replay statement %d of %d %q: %w", i+1, len(stmts), stmt, err)
		}
	}

	end, err := store.MaxSeq(ctx, tx)
	if err != nil {
		return Frame{}, err
	}

	if err := tx.Commit(); err != nil {
		return Frame{}, fmt.Errorf("commit: %w", err)
	}

	return Frame{Begin: begin, End: end}, nil
}

// stacks returns the source and destination stacks for a direction.
func (e *Engine) stacks(dir Direction) (src, dst *stack) {
	if dir == DirRedo {
		return &e.redo, &e.undo
	}
	return &e.undo, &e.redo
}
