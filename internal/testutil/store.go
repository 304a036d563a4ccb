package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/causetrail/internal/store"
)

// NewStore opens a store in a fresh temp directory and closes it when the
// test ends.
func NewStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "causetrail.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
