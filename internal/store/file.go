package store

import (
	"fmt"

	"pv-go/internal/document"
	"pv-go/internal/fs"
	"pv-go/internal/pv"
)

// FileStore keeps the library as a single TOML document on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path. The file and its
// directory are created on the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the document.
func (s *FileStore) Path() string { return s.path }

// Load reads the document. A missing file is an empty library.
func (s *FileStore) Load() (*pv.Snapshot, error) {
	data, ok, err := fs.ReadFileIfExists(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if !ok {
		return pv.EmptySnapshot(), nil
	}
	snap, err := document.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", pv.ErrCorruptStore, s.path, err)
	}
	return snap, nil
}

// Save atomically replaces the document.
func (s *FileStore) Save(snap *pv.Snapshot) error {
	data, err := document.Encode(snap)
	if err != nil {
		return err
	}
	if err := fs.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}

var _ pv.LocalStore = (*FileStore)(nil)
