package pv

import "context"

// RemoteDocument is a fetched remote snapshot with the revision it was read
// at. Revision is opaque to the core; an empty revision means no document
// exists yet.
type RemoteDocument struct {
	Snapshot *Snapshot
	Revision string
}

// Mirror is the remote single-document store. It only supports whole-document
// get and put; there are no partial updates.
type Mirror interface {
	// Fetch returns the current remote snapshot. An absent document is an
	// empty snapshot, not an error. Transport or auth failures wrap
	// ErrRemoteUnavailable; a malformed document wraps ErrCorruptRemote.
	Fetch(ctx context.Context) (*RemoteDocument, error)

	// Replace overwrites the remote document with snap. ifRevision is the
	// revision returned by the Fetch the change was planned against; backends
	// with optimistic concurrency fail with ErrRemoteConflict if the document
	// moved since. Returns the new revision.
	Replace(ctx context.Context, snap *Snapshot, ifRevision string) (string, error)
}
