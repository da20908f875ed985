package pv

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// Prompt is a single stored template record.
// ID is assigned once at creation and is the merge key between the local
// store and the remote mirror; it never changes, even across edits.
type Prompt struct {
	ID          string
	Title       string
	Description string
	Content     string // may embed {{name}} placeholders
	Tags        []string
	Category    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Tombstone records that a prompt was removed. It stays in the snapshot so
// the merge engine can tell "deleted here" apart from "never existed here".
type Tombstone struct {
	ID        string
	DeletedAt time.Time
}

// NormalizeTags trims, de-duplicates and sorts tags. Empty tags are dropped.
// Tags are a set; the normalized form makes equality and serialization stable.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalize returns a copy of p with normalized tags and UTC timestamps.
func (p Prompt) normalize() Prompt {
	p.Tags = NormalizeTags(p.Tags)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p
}

// validate rejects text the document codecs cannot write back out.
// Every string field must be valid UTF-8.
func (p Prompt) validate() error {
	fields := []struct{ name, value string }{
		{"id", p.ID},
		{"title", p.Title},
		{"description", p.Description},
		{"content", p.Content},
		{"category", p.Category},
	}
	for _, t := range p.Tags {
		fields = append(fields, struct{ name, value string }{"tag", t})
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%w: prompt %q: %s is not valid UTF-8", ErrInvalidSnapshot, p.ID, f.name)
		}
	}
	return nil
}

// Clone returns a deep copy of p.
func (p Prompt) Clone() Prompt {
	p.Tags = slices.Clone(p.Tags)
	return p
}

// HasTag reports whether p carries the given tag.
func (p Prompt) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// Equal reports whether p and o are identical in every field.
// Tags compare as sets and timestamps compare as instants.
func (p Prompt) Equal(o Prompt) bool {
	return p.ID == o.ID &&
		p.Title == o.Title &&
		p.Description == o.Description &&
		p.Content == o.Content &&
		p.Category == o.Category &&
		p.CreatedAt.Equal(o.CreatedAt) &&
		p.UpdatedAt.Equal(o.UpdatedAt) &&
		slices.Equal(NormalizeTags(p.Tags), NormalizeTags(o.Tags))
}

// State is what one side of a sync holds for a single id: nothing, a live
// prompt, or a tombstone. At most one of Prompt and Tombstone is set.
type State struct {
	Prompt    *Prompt
	Tombstone *Tombstone
}

// Exists reports whether the side knows about the id at all.
func (s State) Exists() bool { return s.Prompt != nil || s.Tombstone != nil }

// Live reports whether the side holds a live prompt.
func (s State) Live() bool { return s.Prompt != nil }

// Deleted reports whether the side holds a tombstone.
func (s State) Deleted() bool { return s.Tombstone != nil }

// Stamp is the timestamp the merge engine compares: UpdatedAt for a live
// prompt, DeletedAt for a tombstone, zero when absent.
func (s State) Stamp() time.Time {
	switch {
	case s.Prompt != nil:
		return s.Prompt.UpdatedAt
	case s.Tombstone != nil:
		return s.Tombstone.DeletedAt
	default:
		return time.Time{}
	}
}

// Equal reports whether two states are identical.
func (s State) Equal(o State) bool {
	switch {
	case s.Prompt != nil && o.Prompt != nil:
		return s.Prompt.Equal(*o.Prompt)
	case s.Tombstone != nil && o.Tombstone != nil:
		return s.Tombstone.ID == o.Tombstone.ID && s.Tombstone.DeletedAt.Equal(o.Tombstone.DeletedAt)
	default:
		return !s.Exists() && !o.Exists()
	}
}

// String describes the state for logs and conflict reports.
func (s State) String() string {
	switch {
	case s.Prompt != nil:
		return "updated " + s.Prompt.UpdatedAt.Format(time.RFC3339Nano)
	case s.Tombstone != nil:
		return "deleted " + s.Tombstone.DeletedAt.Format(time.RFC3339Nano)
	default:
		return "absent"
	}
}
