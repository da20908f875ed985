package mirror

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"

	"pv-go/internal/pv"
)

// MemoryBlob keeps the remote document in memory, making it useful for
// testing. Revisions count writes. Failures can be injected with FailGet and
// FailPut. This implementation is safe for concurrent use.
type MemoryBlob struct {
	mu      sync.Mutex
	name    string
	data    []byte
	version int
	getErr  error
	putErr  error
	puts    int
}

var _ Blob = (*MemoryBlob)(nil)

// NewMemoryBlob creates an empty in-memory remote.
func NewMemoryBlob(name string) *MemoryBlob {
	return &MemoryBlob{name: name}
}

func (b *MemoryBlob) revision() string {
	if b.version == 0 {
		return ""
	}
	return strconv.Itoa(b.version)
}

// Get returns a copy of the stored document.
func (b *MemoryBlob) Get(ctx context.Context) ([]byte, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.getErr != nil {
		return nil, "", b.getErr
	}
	if b.version == 0 {
		return nil, "", ErrNoDocument
	}
	return bytes.Clone(b.data), b.revision(), nil
}

// Put stores a copy of data if ifRevision matches the current revision.
func (b *MemoryBlob) Put(ctx context.Context, data []byte, ifRevision string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.putErr != nil {
		return "", b.putErr
	}
	if ifRevision != b.revision() {
		return "", fmt.Errorf("%w: %s is at revision %q, expected %q", pv.ErrRemoteConflict, b.Describe(), b.revision(), ifRevision)
	}
	b.data = bytes.Clone(data)
	b.version++
	b.puts++
	return b.revision(), nil
}

// Describe names the remote.
func (b *MemoryBlob) Describe() string { return "memory://" + b.name }

// Data returns the stored document, or nil if none was written.
func (b *MemoryBlob) Data() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.data)
}

// Puts returns the number of successful writes.
func (b *MemoryBlob) Puts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.puts
}

// FailGet makes every Get fail with err until cleared with nil.
func (b *MemoryBlob) FailGet(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getErr = err
}

// FailPut makes every Put fail with err until cleared with nil.
func (b *MemoryBlob) FailPut(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.putErr = err
}
