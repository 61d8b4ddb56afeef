// Package harness runs undo/redo scenarios described in YAML.
//
// Every scenario runs against a fresh in-memory SQLite database. The
// harness executes setup SQL, activates the watched tables, then walks the
// steps in order, recording a trace that can be compared with a golden file.
//
// # Scenario Format
//
//	name: undo_insert
//	description: "Undo of an insert removes the row"
//	setup:
//	  - CREATE TABLE tbl1(a)
//	watch: [tbl1]
//	steps:
//	  - exec: INSERT INTO tbl1 VALUES(23)
//	  - op: barrier
//	  - snapshot: after_insert
//	  - op: undo
//	  - op: unfreeze
//	    expect_error: NOT_FROZEN
//	  - expect:
//	      undo_stack: []
//	      redo_stack: [[1, 1]]
//	      firstlog: 2
//	      rows:
//	        tbl1: []
//	  - op: redo
//	  - expect:
//	      matches_snapshot: after_insert
//
// # Step Kinds
//
//   - exec: application SQL, recorded by the triggers like any other write
//   - op: one engine operation (activate, deactivate, freeze, unfreeze,
//     barrier, undo, redo); activate takes an optional tables list
//   - snapshot: fingerprints the watched tables under a name
//   - expect: checks engine state and table contents; adds no trace event
//
// An op fails the scenario when it returns an error, unless expect_error
// names that error's code.
//
// # Deterministic Testing
//
// Trace events are stamped by a testutil.Sequence and every activation uses
// the same epoch token, so a scenario always produces byte-identical
// canonical JSON.
package harness
