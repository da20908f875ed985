package pv

import "fmt"

// LocalStore persists the local snapshot.
type LocalStore interface {
	// Load reads the persisted snapshot. A store that was never written
	// yields an empty snapshot. Unparseable or invalid data fails with
	// ErrCorruptStore; nothing is partially loaded.
	Load() (*Snapshot, error)

	// Save atomically replaces the persisted snapshot. A concurrent reader
	// sees either the old or the new document, never a partial one.
	Save(snap *Snapshot) error
}

// RecordStore holds the authoritative local snapshot in memory and applies
// CRUD edits to it. Every edit produces a new immutable Snapshot; nothing is
// persisted until Save.
type RecordStore struct {
	backend LocalStore
	clock   Clock
	idgen   IDGenerator
	snap    *Snapshot
}

// NewRecordStore creates a RecordStore over backend, starting empty.
// Call Load to read the persisted snapshot.
func NewRecordStore(backend LocalStore, clock Clock, idgen IDGenerator) *RecordStore {
	return &RecordStore{
		backend: backend,
		clock:   clock,
		idgen:   idgen,
		snap:    EmptySnapshot(),
	}
}

// Load reads the persisted snapshot and makes it current.
func (s *RecordStore) Load() (*Snapshot, error) {
	snap, err := s.backend.Load()
	if err != nil {
		return nil, err
	}
	s.snap = snap
	return snap, nil
}

// Save persists snap and makes it current.
func (s *RecordStore) Save(snap *Snapshot) error {
	if err := s.backend.Save(snap); err != nil {
		return err
	}
	s.snap = snap
	return nil
}

// Snapshot returns the current in-memory snapshot.
func (s *RecordStore) Snapshot() *Snapshot { return s.snap }

// Insert adds a prompt. An empty ID is generated and zero timestamps are set
// to now. Inserting over a tombstone revives the id; inserting over a live
// prompt fails with ErrDuplicateID.
func (s *RecordStore) Insert(p Prompt) (Prompt, error) {
	if p.ID == "" {
		p.ID = s.idgen.New()
	}
	if _, exists := s.snap.prompts[p.ID]; exists {
		return Prompt{}, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
	}
	now := s.clock.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if t, ok := s.snap.tombstones[p.ID]; ok && !p.UpdatedAt.After(t.DeletedAt) {
		p.UpdatedAt = nextStamp(s.clock, t.DeletedAt)
	}
	if err := p.validate(); err != nil {
		return Prompt{}, err
	}

	next := s.snap.clone()
	p = p.Clone().normalize()
	next.set(p.ID, State{Prompt: &p})
	s.snap = next
	return p.Clone(), nil
}

// Update applies mutate to a copy of the prompt with the given id and stores
// the result with a fresh UpdatedAt. ID and CreatedAt cannot be changed by
// mutate. Fails with ErrNotFound if id is not a live prompt and with
// ErrInvalidSnapshot if the edit leaves text that is not valid UTF-8.
func (s *RecordStore) Update(id string, mutate func(*Prompt)) (Prompt, error) {
	current, ok := s.snap.Get(id)
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	edited := current.Clone()
	mutate(&edited)
	edited.ID = current.ID
	edited.CreatedAt = current.CreatedAt
	edited.UpdatedAt = nextStamp(s.clock, current.UpdatedAt)
	edited = edited.normalize()
	if err := edited.validate(); err != nil {
		return Prompt{}, err
	}

	next := s.snap.clone()
	next.set(id, State{Prompt: &edited})
	s.snap = next
	return edited.Clone(), nil
}

// Remove deletes the prompt with the given id, leaving a tombstone so the
// deletion propagates on the next sync. Fails with ErrNotFound if id is not
// a live prompt. Returns the removed prompt.
func (s *RecordStore) Remove(id string) (Prompt, error) {
	current, ok := s.snap.Get(id)
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	t := Tombstone{ID: id, DeletedAt: nextStamp(s.clock, current.UpdatedAt)}
	next := s.snap.clone()
	next.set(id, State{Tombstone: &t})
	s.snap = next
	return current, nil
}
