package store

import (
	"context"
	"fmt"
)

// LogTable is the name of the temporary change-log table.
const LogTable = "undolog"

// LogEntry is one row of the change log: the inverse SQL of a single
// row-level mutation, keyed by its sequence number.
type LogEntry struct {
	Seq int64
	SQL string
}

// ResetLog drops any existing change log and creates an empty one.
// Sequence numbers restart at 1 afterwards.
func (s *Store) ResetLog(ctx context.Context) error {
	if err := s.DropLog(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"CREATE TEMP TABLE "+LogTable+"(seq integer primary key, sql text)")
	if err != nil {
		return fmt.Errorf("create change log: %w", err)
	}
	return nil
}

// DropLog removes the change log. A missing log is not an error.
func (s *Store) DropLog(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS temp."+LogTable); err != nil {
		return fmt.Errorf("drop change log: %w", err)
	}
	return nil
}

// MaxSeq returns the highest sequence number in the change log, or 0 when
// the log is empty.
func MaxSeq(ctx context.Context, q Querier) (int64, error) {
	var seq int64
	err := q.QueryRowContext(ctx, "SELECT coalesce(max(seq),0) FROM "+LogTable).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq, nil
}

// MaxSeq returns the highest sequence number outside of any transaction.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	return MaxSeq(ctx, s.db)
}

// RangeStatements returns the logged statements with begin <= seq <= end,
// most recent first. An empty range (begin > end) yields no statements.
func RangeStatements(ctx context.Context, q Querier, begin, end int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT sql FROM "+LogTable+" WHERE seq>=? AND seq<=? ORDER BY seq DESC",
		begin, end)
	if err != nil {
		return nil, fmt.Errorf("select log range [%d,%d]: %w", begin, end, err)
	}
	defer rows.Close()

	var stmts []string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return nil, fmt.Errorf("select log range [%d,%d]: scan: %w", begin, end, err)
		}
		stmts = append(stmts, stmt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select log range [%d,%d]: %w", begin, end, err)
	}
	return stmts, nil
}

// DeleteRange removes the log rows with begin <= seq <= end.
func DeleteRange(ctx context.Context, q Querier, begin, end int64) error {
	_, err := q.ExecContext(ctx,
		"DELETE FROM "+LogTable+" WHERE seq>=? AND seq<=?", begin, end)
	if err != nil {
		return fmt.Errorf("delete log range [%d,%d]: %w", begin, end, err)
	}
	return nil
}

// DeleteAfter discards every log row with seq > cutoff and reports how many
// rows were removed.
func (s *Store) DeleteAfter(ctx context.Context, cutoff int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+LogTable+" WHERE seq>?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete log after %d: %w", cutoff, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete log after %d: %w", cutoff, err)
	}
	return n, nil
}

// LogEntries returns the whole change log in sequence order.
// Intended for diagnostics (the shell's .log command and tests).
func (s *Store) LogEntries(ctx context.Context) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT seq, sql FROM "+LogTable+" ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("list change log: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.Seq, &e.SQL); err != nil {
			return nil, fmt.Errorf("list change log: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
