// Package mirror implements the remote single-document store. Backends move
// opaque bytes (a Blob); DocumentMirror layers the document codec and
// optional encryption on top to satisfy pv.Mirror.
package mirror

import (
	"context"
	"errors"
)

// ErrNoDocument is returned by Blob.Get when the remote holds no document yet.
var ErrNoDocument = errors.New("no remote document")

// Blob is one remote object holding the whole library.
//
// Revisions are opaque strings chosen by the backend. Put with an empty
// ifRevision expects no document to exist; with a non-empty one it expects
// the document to still be at that revision. A mismatch wraps
// pv.ErrRemoteConflict. Transport and auth failures wrap pv.ErrRemoteUnavailable.
type Blob interface {
	Get(ctx context.Context) (data []byte, revision string, err error)
	Put(ctx context.Context, data []byte, ifRevision string) (revision string, err error)
	// Describe names the remote for logs, e.g. "s3://bucket/key".
	Describe() string
}
