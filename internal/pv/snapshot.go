package pv

import (
	"fmt"
	"maps"
	"slices"
	"time"
	"unicode/utf8"
)

// Snapshot is the full state of one side (local or remote) at one instant:
// live prompts and tombstones keyed by id. Snapshots are immutable; every
// accessor returns copies and every change produces a new Snapshot.
type Snapshot struct {
	prompts    map[string]Prompt
	tombstones map[string]Tombstone
}

// EmptySnapshot returns a snapshot with no records.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		prompts:    make(map[string]Prompt),
		tombstones: make(map[string]Tombstone),
	}
}

// NewSnapshot builds a snapshot from prompts and tombstones.
// It fails with ErrInvalidSnapshot if any id is empty or appears more than
// once, counting prompts and tombstones together, or if any text is not
// valid UTF-8.
func NewSnapshot(prompts []Prompt, tombstones []Tombstone) (*Snapshot, error) {
	s := EmptySnapshot()
	for _, p := range prompts {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: prompt %q has an empty id", ErrInvalidSnapshot, p.Title)
		}
		if _, dup := s.prompts[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate prompt id %s", ErrInvalidSnapshot, p.ID)
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		s.prompts[p.ID] = p.Clone().normalize()
	}
	for _, t := range tombstones {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: tombstone has an empty id", ErrInvalidSnapshot)
		}
		if !utf8.ValidString(t.ID) {
			return nil, fmt.Errorf("%w: tombstone id %q is not valid UTF-8", ErrInvalidSnapshot, t.ID)
		}
		if _, dup := s.prompts[t.ID]; dup {
			return nil, fmt.Errorf("%w: id %s is both live and deleted", ErrInvalidSnapshot, t.ID)
		}
		if _, dup := s.tombstones[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate tombstone id %s", ErrInvalidSnapshot, t.ID)
		}
		t.DeletedAt = t.DeletedAt.UTC()
		s.tombstones[t.ID] = t
	}
	return s, nil
}

// Len returns the number of live prompts.
func (s *Snapshot) Len() int { return len(s.prompts) }

// Get returns the live prompt with the given id.
func (s *Snapshot) Get(id string) (Prompt, bool) {
	p, ok := s.prompts[id]
	if !ok {
		return Prompt{}, false
	}
	return p.Clone(), true
}

// Tombstone returns the tombstone for id, if the prompt was deleted.
func (s *Snapshot) Tombstone(id string) (Tombstone, bool) {
	t, ok := s.tombstones[id]
	return t, ok
}

// IDs returns the live prompt ids in ascending order.
func (s *Snapshot) IDs() []string {
	return slices.Sorted(maps.Keys(s.prompts))
}

// AllIDs returns the ids of live prompts and tombstones in ascending order.
func (s *Snapshot) AllIDs() []string {
	ids := slices.AppendSeq(slices.Collect(maps.Keys(s.prompts)), maps.Keys(s.tombstones))
	slices.Sort(ids)
	return ids
}

// Prompts returns copies of the live prompts ordered by id.
func (s *Snapshot) Prompts() []Prompt {
	ids := s.IDs()
	out := make([]Prompt, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.prompts[id].Clone())
	}
	return out
}

// Tombstones returns the tombstones ordered by id.
func (s *Snapshot) Tombstones() []Tombstone {
	ids := slices.Sorted(maps.Keys(s.tombstones))
	out := make([]Tombstone, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.tombstones[id])
	}
	return out
}

// Equal reports whether both snapshots hold exactly the same records.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if len(s.prompts) != len(o.prompts) || len(s.tombstones) != len(o.tombstones) {
		return false
	}
	for id, p := range s.prompts {
		op, ok := o.prompts[id]
		if !ok || !p.Equal(op) {
			return false
		}
	}
	for id, t := range s.tombstones {
		ot, ok := o.tombstones[id]
		if !ok || !t.DeletedAt.Equal(ot.DeletedAt) {
			return false
		}
	}
	return true
}

// PruneTombstones returns a snapshot without tombstones deleted before cutoff,
// and the number removed. Live prompts are untouched.
func (s *Snapshot) PruneTombstones(cutoff time.Time) (*Snapshot, int) {
	out := s.clone()
	pruned := 0
	for id, t := range s.tombstones {
		if t.DeletedAt.Before(cutoff) {
			delete(out.tombstones, id)
			pruned++
		}
	}
	return out, pruned
}

// state returns what the snapshot holds for id.
func (s *Snapshot) state(id string) State {
	if p, ok := s.prompts[id]; ok {
		p = p.Clone()
		return State{Prompt: &p}
	}
	if t, ok := s.tombstones[id]; ok {
		return State{Tombstone: &t}
	}
	return State{}
}

// clone returns a shallow copy whose maps may be modified by this package.
// Prompt values are copied on every read, so sharing tag slices is safe.
func (s *Snapshot) clone() *Snapshot {
	out := EmptySnapshot()
	maps.Copy(out.prompts, s.prompts)
	maps.Copy(out.tombstones, s.tombstones)
	return out
}

// set replaces whatever is stored for id with st. Only used on clones.
func (s *Snapshot) set(id string, st State) {
	delete(s.prompts, id)
	delete(s.tombstones, id)
	switch {
	case st.Prompt != nil:
		s.prompts[id] = st.Prompt.Clone().normalize()
	case st.Tombstone != nil:
		s.tombstones[id] = *st.Tombstone
	}
}

// unionIDs returns every id known to either snapshot, ascending.
func unionIDs(a, b *Snapshot) []string {
	ids := slices.Concat(a.AllIDs(), b.AllIDs())
	slices.Sort(ids)
	return slices.Compact(ids)
}
