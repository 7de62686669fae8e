package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/shoplist/internal/ids"
	"github.com/roach88/shoplist/internal/testutil"
)

var testEpoch = time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed SQLite store for testing.
// Timestamps come from a step clock starting at testEpoch, one second apart.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	clock := testutil.NewStepClock(testEpoch, time.Second)
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	s, err := Open(DriverSQLite, path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createFixedStore creates a test store whose ids come from the given list.
func createFixedStore(t *testing.T, idList ...string) *Store {
	t.Helper()
	return createTestStore(t, WithIDGenerator(ids.NewFixedGenerator(idList...)))
}
