// Package store provides the SQLite collaborator for the undo/redo engine.
//
// The store owns exactly one database connection. Temporary triggers and the
// temporary change-log table are scoped to a SQLite connection, so the pool is
// pinned to a single long-lived connection for the lifetime of the Store.
//
// # Change Log
//
// The change log is a temporary table:
//
//	CREATE TEMP TABLE undolog(seq integer primary key, sql text)
//
// Rows are appended only by the triggers installed by package trigger. Each row
// holds the SQL text of the inverse of one insert, update or delete. The seq
// column uses rowid assignment: a new row always gets max(seq)+1, so numbers
// freed by deleting the tail of the log are handed out again, and the
// sequence restarts at 1 every time the log is reset.
//
// # Database Configuration
//
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - WAL mode and synchronous=NORMAL for file-backed databases
//
// Queries that must run inside the stepper's transaction take a Querier so the
// same code serves both *sql.DB and *sql.Tx.
package store
