package store

import (
	"sync"

	"pv-go/internal/pv"
)

// MemoryStore keeps the library in memory. Useful for testing.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	snap    *pv.Snapshot
	saves   int
	saveErr error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snap: pv.EmptySnapshot()}
}

// Load returns the last saved snapshot.
func (s *MemoryStore) Load() (*pv.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, nil
}

// Save replaces the stored snapshot. Snapshots are immutable, so no copy is needed.
func (s *MemoryStore) Save(snap *pv.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snap = snap
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// FailSave makes every Save fail with err until cleared with nil.
func (s *MemoryStore) FailSave(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

var _ pv.LocalStore = (*MemoryStore)(nil)
