package undo

import (
	"context"
	"log/slog"

	"github.com/roach88/undoredo/internal/store"
	"github.com/roach88/undoredo/internal/trigger"
)

// notFrozen is the freeze cutoff sentinel while the engine is not frozen.
const notFrozen int64 = -1

// state is the engine's owned mutable state.
//
// INVARIANTS:
//   - firstlog >= 1
//   - freeze == notFrozen unless active and frozen
//   - stacks are empty while inactive
type state struct {
	active   bool
	freeze   int64
	firstlog int64
	epoch    string
	tables   []string
}

// Engine records changes to watched tables and steps them back and forth.
//
// Engine methods must not be called concurrently. Use a Dispatcher when
// several goroutines share an engine.
type Engine struct {
	store    *store.Store
	logger   *slog.Logger
	observer Observer
	epochGen EpochGenerator

	state state
	undo  stack
	redo  stack
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithObserver registers an observer for refresh and reload notifications.
// Calling it more than once registers every observer, notified in order.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if e.observer == nil {
			e.observer = o
			return
		}
		e.observer = MultiObserver{e.observer, o}
	}
}

// WithEpochGenerator sets the source of activation epoch tokens.
// Default: UUIDv7Generator.
func WithEpochGenerator(g EpochGenerator) Option {
	return func(e *Engine) {
		e.epochGen = g
	}
}

// New creates an inactive Engine over the given store.
func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		logger:   slog.Default(),
		epochGen: UUIDv7Generator{},
		state: state{
			freeze:   notFrozen,
			firstlog: 1,
		},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Activate starts recording changes to the given tables.
//
// The change log is recreated, triggers are installed for every table, both
// stacks are cleared and a new interval is opened. Activate on an active
// engine does nothing; the watched tables stay as they were.
func (e *Engine) Activate(ctx context.Context, tables ...string) error {
	if e.state.active {
		e.refresh()
		return nil
	}

	for _, table := range tables {
		if !trigger.ValidTable(table) {
			return newInvalidTable(table)
		}
	}

	if err := trigger.Install(ctx, e.store, tables); err != nil {
		// Leave nothing half-installed behind.
		if dropErr := trigger.Drop(ctx, e.store); dropErr != nil {
			e.logger.Error("cleanup after failed activate", "error", dropErr)
		}
		return newStoreFailure("activate", err)
	}

	e.undo.clear()
	e.redo.clear()
	e.state.active = true
	e.state.freeze = notFrozen
	e.state.tables = append([]string(nil), tables...)
	e.state.epoch = e.epochGen.Generate()

	if err := e.startInterval(ctx); err != nil {
		return newStoreFailure("activate", err)
	}

	e.logger.Info("undo activated",
		"epoch", e.state.epoch,
		"tables", tables,
		"firstlog", e.state.firstlog,
	)
	e.refresh()
	return nil
}

// Deactivate removes the triggers and the change log and discards both
// stacks. Deactivate on an inactive engine does nothing.
func (e *Engine) Deactivate(ctx context.Context) error {
	if !e.state.active {
		e.refresh()
		return nil
	}

	if err := trigger.Drop(ctx, e.store); err != nil {
		return newStoreFailure("deactivate", err)
	}

	epoch := e.state.epoch
	e.undo.clear()
	e.redo.clear()
	e.state = state{freeze: notFrozen, firstlog: 1}

	e.logger.Info("undo deactivated", "epoch", epoch)
	e.refresh()
	return nil
}

// Freeze stops admitting new changes into undo intervals. Changes logged
// from now on are excluded from the next Barrier and discarded by Unfreeze.
//
// Returns an ALREADY_FROZEN error if the engine is frozen. Does nothing while
// inactive.
func (e *Engine) Freeze(ctx context.Context) error {
	if !e.state.active {
		e.refresh()
		return nil
	}
	if e.state.freeze >= 0 {
		return newAlreadyFrozen(e.state.freeze)
	}

	cutoff, err := e.store.MaxSeq(ctx)
	if err != nil {
		return newStoreFailure("freeze", err)
	}
	e.state.freeze = cutoff

	e.logger.Debug("undo frozen", "epoch", e.state.epoch, "freeze", cutoff)
	e.refresh()
	return nil
}

// Unfreeze deletes every change logged after the freeze cutoff and resumes
// normal recording. Changes made while frozen can no longer be undone.
//
// Returns a NOT_FROZEN error if the engine is not frozen. Does nothing while
// inactive.
func (e *Engine) Unfreeze(ctx context.Context) error {
	if !e.state.active {
		e.refresh()
		return nil
	}
	if e.state.freeze < 0 {
		return newNotFrozen()
	}

	discarded, err := e.store.DeleteAfter(ctx, e.state.freeze)
	if err != nil {
		return newStoreFailure("unfreeze", err)
	}

	e.logger.Debug("undo unfrozen",
		"epoch", e.state.epoch,
		"freeze", e.state.freeze,
		"discarded", discarded,
	)
	e.state.freeze = notFrozen
	e.refresh()
	return nil
}

// Barrier closes the open interval into a frame on the undo stack and
// clears the redo stack. Nothing is pushed if the log has not grown since
// the previous boundary. While frozen, the frame ends at the freeze cutoff.
//
// Barrier on an inactive engine only notifies the observer.
func (e *Engine) Barrier(ctx context.Context) error {
	if !e.state.active {
		e.refresh()
		return nil
	}

	end, err := e.store.MaxSeq(ctx)
	if err != nil {
		return newStoreFailure("barrier", err)
	}
	if e.state.freeze >= 0 && end > e.state.freeze {
		end = e.state.freeze
	}

	begin := e.state.firstlog
	if err := e.startInterval(ctx); err != nil {
		return newStoreFailure("barrier", err)
	}

	// Compared against the recomputed boundary, not end: under freeze the
	// two diverge and a degenerate frame can be pushed.
	if begin == e.state.firstlog {
		e.refresh()
		return nil
	}

	frame := Frame{Begin: begin, End: end}
	e.undo.push(frame)
	e.redo.clear()

	e.logger.Debug("barrier",
		"epoch", e.state.epoch,
		"begin", frame.Begin,
		"end", frame.End,
		"firstlog", e.state.firstlog,
		"empty", frame.Empty(),
	)
	e.refresh()
	return nil
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	return Status{
		Active:       e.state.active,
		Frozen:       e.state.active && e.state.freeze >= 0,
		FreezeCutoff: e.state.freeze,
		FirstLog:     e.state.firstlog,
		Epoch:        e.state.epoch,
		UndoDepth:    e.undo.len(),
		RedoDepth:    e.redo.len(),
		CanUndo:      e.CanUndo(),
		CanRedo:      e.CanRedo(),
	}
}

// CanUndo reports whether Undo has a frame to step.
func (e *Engine) CanUndo() bool {
	return e.state.active && e.undo.len() > 0
}

// CanRedo reports whether Redo has a frame to step.
func (e *Engine) CanRedo() bool {
	return e.state.active && e.redo.len() > 0
}

// UndoStack returns a copy of the undo stack, oldest frame first.
func (e *Engine) UndoStack() []Frame {
	return e.undo.snapshot()
}

// RedoStack returns a copy of the redo stack, oldest frame first.
func (e *Engine) RedoStack() []Frame {
	return e.redo.snapshot()
}

// Tables returns the watched tables of the current activation.
func (e *Engine) Tables() []string {
	return append([]string(nil), e.state.tables...)
}

// Store returns the store the engine records.
func (e *Engine) Store() *store.Store {
	return e.store
}

// startInterval opens a new interval at max(seq)+1.
func (e *Engine) startInterval(ctx context.Context) error {
	seq, err := e.store.MaxSeq(ctx)
	if err != nil {
		return err
	}
	e.state.firstlog = seq + 1
	return nil
}

func (e *Engine) refresh() {
	if e.observer != nil {
		e.observer.Refresh(e.Status())
	}
}
