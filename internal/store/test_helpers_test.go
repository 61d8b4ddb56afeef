package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustExec runs a statement and fails the test on error.
func mustExec(t *testing.T, s *Store, query string, args ...any) {
	t.Helper()
	if _, err := s.Exec(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// appendLog inserts a log row directly, standing in for a trigger.
func appendLog(t *testing.T, s *Store, stmt string) {
	t.Helper()
	mustExec(t, s, "INSERT INTO "+LogTable+" VALUES(NULL, ?)", stmt)
}
