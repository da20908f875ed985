package testutil

import (
	"testing"

	"pv-go/internal/database"
)

// NewTestHistory creates an in-memory SQLite sync history with migrations
// applied. It is closed when the test completes.
func NewTestHistory(t *testing.T) *database.SQLiteHistory {
	t.Helper()

	h, err := database.NewSQLiteHistory(":memory:")
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	t.Cleanup(func() {
		h.Close()
	})
	return h
}
