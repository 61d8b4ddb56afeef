package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetLog_CreatesEmptyLog(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ResetLog(ctx))

	seq, err := s.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
}

func TestResetLog_RestartsSequence(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ResetLog(ctx))
	appendLog(t, s, "DELETE FROM t WHERE rowid=1")
	appendLog(t, s, "DELETE FROM t WHERE rowid=2")

	seq, err := s.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)

	require.NoError(t, s.ResetLog(ctx))
	appendLog(t, s, "DELETE FROM t WHERE rowid=3")

	entries, err := s.LogEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].Seq)
}

func TestDropLog_MissingIsNotError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DropLog(ctx))
	require.NoError(t, s.ResetLog(ctx))
	require.NoError(t, s.DropLog(ctx))
	require.NoError(t, s.DropLog(ctx))

	_, err := s.MaxSeq(ctx)
	assert.Error(t, err, "log should be gone")
}

func TestDropLog_LeavesMainTableAlone(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// A user table that happens to share the log's name lives in main.
	mustExec(t, s, "CREATE TABLE main.undolog(x)")
	require.NoError(t, s.ResetLog(ctx))
	require.NoError(t, s.DropLog(ctx))

	var n int
	err := s.DB().QueryRow("SELECT count(*) FROM main.undolog").Scan(&n)
	assert.NoError(t, err)
}

func TestRangeStatements_Descending(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ResetLog(ctx))

	appendLog(t, s, "one")
	appendLog(t, s, "two")
	appendLog(t, s, "three")
	appendLog(t, s, "four")

	stmts, err := RangeStatements(ctx, s.DB(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "two"}, stmts)
}

func TestRangeStatements_EmptyRange(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ResetLog(ctx))
	appendLog(t, s, "one")
	appendLog(t, s, "two")

	stmts, err := RangeStatements(ctx, s.DB(), 2, 1)
	require.NoError(t, err)
	assert.Empty(t, stmts)
}

func TestDeleteRange(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ResetLog(ctx))
	for _, stmt := range []string{"a", "b", "c", "d"} {
		appendLog(t, s, stmt)
	}

	require.NoError(t, DeleteRange(ctx, s.DB(), 2, 3))

	entries, err := s.LogEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []LogEntry{{Seq: 1, SQL: "a"}, {Seq: 4, SQL: "d"}}, entries)
}

func TestDeleteRange_InsideTransactionRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ResetLog(ctx))
	appendLog(t, s, "a")
	appendLog(t, s, "b")

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, DeleteRange(ctx, tx, 1, 2))

	seq, err := MaxSeq(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, tx.Rollback())

	seq, err = s.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestDeleteAfter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ResetLog(ctx))
	for _, stmt := range []string{"a", "b", "c", "d"} {
		appendLog(t, s, stmt)
	}

	n, err := s.DeleteAfter(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	seq, err := s.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestMaxSeq_NeverReusedAfterDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ResetLog(ctx))
	appendLog(t, s, "a")
	appendLog(t, s, "b")
	appendLog(t, s, "c")

	// Deleting a middle range keeps the maximum, so the next row is 4.
	require.NoError(t, DeleteRange(ctx, s.DB(), 2, 2))
	appendLog(t, s, "d")

	seq, err := s.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), seq)
}
