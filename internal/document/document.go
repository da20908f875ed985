// Package document defines the persisted form of a prompt library: the TOML
// document written by the local store and pushed to the remote mirror.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"pv-go/internal/pv"
)

// SchemaVersion is the only document version this build reads and writes.
const SchemaVersion = 1

// ErrMalformed is returned when a document cannot be turned into a valid
// snapshot. Callers wrap it with pv.ErrCorruptStore or pv.ErrCorruptRemote.
var ErrMalformed = errors.New("malformed document")

// Document is the serialized library. The same shape is used for TOML, JSON
// and YAML.
type Document struct {
	SchemaVersion int               `toml:"schema_version" json:"schema_version" yaml:"schema_version"`
	Prompts       []PromptRecord    `toml:"prompts" json:"prompts" yaml:"prompts"`
	Tombstones    []TombstoneRecord `toml:"tombstones,omitempty" json:"tombstones,omitempty" yaml:"tombstones,omitempty"`
}

// PromptRecord is one serialized prompt. Timestamps are RFC 3339 strings with
// nanoseconds so no format loses precision.
type PromptRecord struct {
	ID          string   `toml:"id" json:"id" yaml:"id"`
	Title       string   `toml:"title" json:"title" yaml:"title"`
	Description string   `toml:"description,omitempty" json:"description,omitempty" yaml:"description,omitempty"`
	Content     string   `toml:"content" json:"content" yaml:"content"`
	Tags        []string `toml:"tags,omitempty" json:"tags,omitempty" yaml:"tags,omitempty"`
	Category    string   `toml:"category,omitempty" json:"category,omitempty" yaml:"category,omitempty"`
	CreatedAt   string   `toml:"created_at" json:"created_at" yaml:"created_at"`
	UpdatedAt   string   `toml:"updated_at" json:"updated_at" yaml:"updated_at"`
}

// TombstoneRecord is one serialized deletion marker.
type TombstoneRecord struct {
	ID        string `toml:"id" json:"id" yaml:"id"`
	DeletedAt string `toml:"deleted_at" json:"deleted_at" yaml:"deleted_at"`
}

// FromSnapshot converts a snapshot into its serializable form, ordered by id.
func FromSnapshot(snap *pv.Snapshot) Document {
	doc := Document{SchemaVersion: SchemaVersion}
	for _, p := range snap.Prompts() {
		doc.Prompts = append(doc.Prompts, PromptRecord{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Content:     p.Content,
			Tags:        p.Tags,
			Category:    p.Category,
			CreatedAt:   formatTime(p.CreatedAt),
			UpdatedAt:   formatTime(p.UpdatedAt),
		})
	}
	for _, t := range snap.Tombstones() {
		doc.Tombstones = append(doc.Tombstones, TombstoneRecord{
			ID:        t.ID,
			DeletedAt: formatTime(t.DeletedAt),
		})
	}
	return doc
}

// Snapshot validates the document and builds a snapshot from it.
func (d Document) Snapshot() (*pv.Snapshot, error) {
	if d.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema_version %d", ErrMalformed, d.SchemaVersion)
	}

	prompts := make([]pv.Prompt, 0, len(d.Prompts))
	for i, r := range d.Prompts {
		created, err := parseTime(r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: prompt %d (%s) created_at: %w", ErrMalformed, i, r.ID, err)
		}
		updated, err := parseTime(r.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: prompt %d (%s) updated_at: %w", ErrMalformed, i, r.ID, err)
		}
		prompts = append(prompts, pv.Prompt{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Content:     r.Content,
			Tags:        r.Tags,
			Category:    r.Category,
			CreatedAt:   created,
			UpdatedAt:   updated,
		})
	}

	tombstones := make([]pv.Tombstone, 0, len(d.Tombstones))
	for i, r := range d.Tombstones {
		deleted, err := parseTime(r.DeletedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: tombstone %d (%s) deleted_at: %w", ErrMalformed, i, r.ID, err)
		}
		tombstones = append(tombstones, pv.Tombstone{ID: r.ID, DeletedAt: deleted})
	}

	snap, err := pv.NewSnapshot(prompts, tombstones)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return snap, nil
}

// Encode writes snap as a TOML document.
func Encode(snap *pv.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(FromSnapshot(snap)); err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a TOML document. Empty input is an empty snapshot.
func Decode(data []byte) (*pv.Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return pv.EmptySnapshot(), nil
	}
	var doc Document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return doc.Snapshot()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
