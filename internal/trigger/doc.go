// Package trigger generates and installs the change-recording triggers.
//
// For every watched table three temporary triggers are created:
//
//	_<table>_it  AFTER INSERT   logs  DELETE FROM <table> WHERE rowid=<new.rowid>
//	_<table>_ut  AFTER UPDATE   logs  UPDATE <table> SET <col>=<old value>,... WHERE rowid=<old.rowid>
//	_<table>_dt  BEFORE DELETE  logs  INSERT INTO <table>(rowid,<cols>) VALUES(<old.rowid>,<old values>)
//
// Old values pass through SQLite's quote() so strings with embedded quotes,
// blobs and NULLs round-trip through the logged SQL text. The triggers live in
// the temp schema and disappear with the connection if they are never dropped.
//
// Generate is a pure function of the table name and its column list; Install
// and Drop apply the result to a store.
package trigger
