package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/causetrail/internal/cause"
)

// createTestStore creates a new store in a temp directory for testing.
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

// createTestRun creates a run record with minimal required fields.
func createTestRun(id, project string, number int, seq int64, causes ...cause.Cause) RunRecord {
	return RunRecord{
		ID:      id,
		Project: project,
		Number:  number,
		Causes:  cause.NewChain(causes...),
		Policy:  cause.DefaultPolicy(),
		Seq:     seq,
	}
}
