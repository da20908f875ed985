package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"pv-go/internal/fs"
	"pv-go/internal/pv"
)

// FileSystemBlob keeps the remote document as a file, typically in a synced
// folder or a network mount. The revision is the SHA-256 of the content.
// The revision check and the write are not atomic across processes.
type FileSystemBlob struct {
	path string
}

var _ Blob = (*FileSystemBlob)(nil)

// NewFileSystemBlob creates a blob stored at path. A directory path stores
// the document as prompts.toml inside it.
func NewFileSystemBlob(path string) (*FileSystemBlob, error) {
	if path == "" {
		return nil, fmt.Errorf("filesystem remote requires a path")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "prompts.toml")
	}
	return &FileSystemBlob{path: path}, nil
}

// Get reads the document.
func (b *FileSystemBlob) Get(ctx context.Context) ([]byte, string, error) {
	data, ok, err := fs.ReadFileIfExists(b.path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", pv.ErrRemoteUnavailable, err)
	}
	if !ok {
		return nil, "", ErrNoDocument
	}
	return data, contentRevision(data), nil
}

// Put atomically replaces the document.
func (b *FileSystemBlob) Put(ctx context.Context, data []byte, ifRevision string) (string, error) {
	current, ok, err := fs.ReadFileIfExists(b.path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", pv.ErrRemoteUnavailable, err)
	}
	currentRev := ""
	if ok {
		currentRev = contentRevision(current)
	}
	if currentRev != ifRevision {
		return "", fmt.Errorf("%w: %s changed since it was read", pv.ErrRemoteConflict, b.path)
	}

	if err := fs.WriteFileAtomic(b.path, data, 0o600); err != nil {
		return "", fmt.Errorf("%w: %w", pv.ErrRemoteUnavailable, err)
	}
	return contentRevision(data), nil
}

// Describe names the remote.
func (b *FileSystemBlob) Describe() string { return "file://" + b.path }

func contentRevision(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
