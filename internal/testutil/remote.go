package testutil

import (
	"testing"

	"pv-go/internal/encryption"
	"pv-go/internal/mirror"
	"pv-go/internal/pv"
	"pv-go/internal/store"
)

// NewTestStore creates an empty in-memory local store.
func NewTestStore() *store.MemoryStore {
	return store.NewMemoryStore()
}

// NewTestMirror creates a plaintext mirror over a fresh in-memory blob.
// The blob is returned so tests can inspect writes and inject failures.
func NewTestMirror() (*mirror.DocumentMirror, *mirror.MemoryBlob) {
	blob := mirror.NewMemoryBlob("test-remote")
	return mirror.NewDocumentMirror(blob), blob
}

// NewEncryptedTestMirror is NewTestMirror with the test encryptor applied.
func NewEncryptedTestMirror(t *testing.T) (*mirror.DocumentMirror, *mirror.MemoryBlob) {
	t.Helper()
	enc := NewTestEncryptor()
	dc, err := enc.Unlock("")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	blob := mirror.NewMemoryBlob("test-remote")
	return mirror.NewDocumentMirror(blob, mirror.WithEncryption(enc, dc)), blob
}

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() pv.Encryptor {
	return encryption.NewTestEncryptor()
}
