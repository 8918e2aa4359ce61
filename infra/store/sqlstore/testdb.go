package sqlstore

import (
	"context"
	"testing"
)

// OpenTestDB opens an in-memory SQLite store with all migrations applied.
// The store is closed when the test finishes.
func OpenTestDB(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), SQLite, ":memory:", Options{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
