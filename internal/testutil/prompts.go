package testutil

import (
	"testing"
	"time"

	"pv-go/internal/pv"
)

// NewPrompt builds a prompt created at FixedTime and last edited at updated.
func NewPrompt(id, title string, updated time.Time) pv.Prompt {
	return pv.Prompt{
		ID:        id,
		Title:     title,
		Content:   "Content of " + title,
		CreatedAt: FixedTime,
		UpdatedAt: updated,
	}
}

// At returns FixedTime shifted by d, for readable timestamps in tables.
func At(d time.Duration) time.Time {
	return FixedTime.Add(d)
}

// MustSnapshot builds a snapshot or fails the test.
func MustSnapshot(t *testing.T, prompts []pv.Prompt, tombstones []pv.Tombstone) *pv.Snapshot {
	t.Helper()
	snap, err := pv.NewSnapshot(prompts, tombstones)
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return snap
}
