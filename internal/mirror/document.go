package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"pv-go/internal/document"
	"pv-go/internal/pv"
)

const armorHeader = "-----BEGIN AGE ENCRYPTED FILE-----"

// DocumentMirror implements pv.Mirror over a Blob.
type DocumentMirror struct {
	blob      Blob
	encryptor pv.Encryptor
	decrypter pv.DecryptionContext
	logger    pv.Logger
}

var _ pv.Mirror = (*DocumentMirror)(nil)

// Option configures DocumentMirror.
type Option func(*DocumentMirror)

// WithEncryption encrypts documents with enc before Put and decrypts them
// with dc after Get. dc may be nil for a mirror that is only written to.
func WithEncryption(enc pv.Encryptor, dc pv.DecryptionContext) Option {
	return func(m *DocumentMirror) {
		m.encryptor = enc
		m.decrypter = dc
	}
}

// WithLogger sets the logger. Default discards.
func WithLogger(l pv.Logger) Option {
	return func(m *DocumentMirror) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewDocumentMirror creates a mirror storing the library in blob.
func NewDocumentMirror(blob Blob, opts ...Option) *DocumentMirror {
	m := &DocumentMirror{blob: blob, logger: pv.NewNopLogger()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Blob returns the underlying backend.
func (m *DocumentMirror) Blob() Blob { return m.blob }

// Fetch reads and decodes the remote document.
func (m *DocumentMirror) Fetch(ctx context.Context) (*pv.RemoteDocument, error) {
	data, rev, err := m.blob.Get(ctx)
	if errors.Is(err, ErrNoDocument) {
		m.logger.Debug("remote document absent", "remote", m.blob.Describe())
		return &pv.RemoteDocument{Snapshot: pv.EmptySnapshot()}, nil
	}
	if err != nil {
		return nil, err
	}

	if m.encryptor != nil {
		if m.decrypter == nil {
			return nil, fmt.Errorf("%w: %s is encrypted but no key was unlocked", pv.ErrRemoteUnavailable, m.blob.Describe())
		}
		var plain bytes.Buffer
		if err := m.decrypter.Decrypt(bytes.NewReader(data), &plain); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", pv.ErrCorruptRemote, m.blob.Describe(), err)
		}
		data = plain.Bytes()
	} else if bytes.HasPrefix(bytes.TrimSpace(data), []byte(armorHeader)) {
		return nil, fmt.Errorf("%w: %s is encrypted, set encryption.type = \"age\"", pv.ErrCorruptRemote, m.blob.Describe())
	}

	snap, err := document.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", pv.ErrCorruptRemote, m.blob.Describe(), err)
	}
	m.logger.Debug("remote document fetched", "remote", m.blob.Describe(), "revision", rev, "prompts", snap.Len())
	return &pv.RemoteDocument{Snapshot: snap, Revision: rev}, nil
}

// Replace encodes snap and overwrites the remote document.
func (m *DocumentMirror) Replace(ctx context.Context, snap *pv.Snapshot, ifRevision string) (string, error) {
	data, err := document.Encode(snap)
	if err != nil {
		return "", err
	}

	if m.encryptor != nil {
		var sealed bytes.Buffer
		if err := m.encryptor.Encrypt(bytes.NewReader(data), &sealed); err != nil {
			return "", fmt.Errorf("%w: encrypting remote document: %w", pv.ErrRemoteUnavailable, err)
		}
		data = sealed.Bytes()
	}

	return m.blob.Put(ctx, data, ifRevision)
}

// Close releases the backend's resources, if it holds any.
func (m *DocumentMirror) Close() error {
	if c, ok := m.blob.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
