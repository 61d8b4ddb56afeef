// Package undo implements generic undo/redo over a set of SQLite tables.
//
// The engine never touches application code. Activate installs triggers that
// append the inverse SQL of every insert, update and delete on the watched
// tables to a temporary change log. The log is then cut into intervals:
//
//   - Barrier closes the open interval [firstlog, max(seq)] into a Frame on the
//     undo stack and clears the redo stack.
//   - Undo pops the newest undo Frame, replays its statements newest first in a
//     single transaction, and pushes the Frame of statements that replay
//     logged onto the redo stack. Redo is the same step in the other direction.
//   - Freeze records a cutoff; changes logged after it are left out of the
//     next Frame and discarded by Unfreeze.
//
// # State
//
//	Inactive --Activate--> Active{Unfrozen} --Freeze--> Active{Frozen}
//	    ^                       |     ^                      |
//	    +------Deactivate-------+     +-------Unfreeze-------+
//
// Activate while active and Deactivate while inactive are no-ops, as are
// Freeze and Unfreeze while inactive.
//
// # Ownership
//
// One Engine owns one store connection's triggers, change log and stacks.
// Engine methods are not safe for concurrent use; callers that share an engine
// across goroutines submit commands through a Dispatcher, which runs them one
// at a time on a single goroutine.
//
// # Degenerate Frames
//
// A Barrier taken while frozen clamps the Frame's end to the freeze cutoff,
// which can leave End below Begin. Such a Frame replays nothing, still
// occupies a stack slot, and mirrors onto the opposite stack as another
// degenerate Frame. Frame.Empty reports it.
package undo
