package pv

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for store, mirror and sync operations.
// Callers should use errors.Is to check.
var (
	// ErrCorruptStore means the local persisted form could not be parsed into valid prompts.
	ErrCorruptStore = errors.New("local store is corrupt")
	// ErrCorruptRemote means the remote document could not be parsed into valid prompts.
	ErrCorruptRemote = errors.New("remote document is corrupt")
	// ErrRemoteUnavailable is a transport or auth failure talking to the remote mirror. Safe to retry.
	ErrRemoteUnavailable = errors.New("remote mirror unavailable")
	// ErrRemoteConflict means the remote document changed between fetch and replace.
	ErrRemoteConflict = errors.New("remote document changed since it was fetched")
	// ErrNotFound means no prompt exists with the requested id.
	ErrNotFound = errors.New("prompt not found")
	// ErrDuplicateID means a prompt with the same id is already stored.
	ErrDuplicateID = errors.New("prompt id already exists")
	// ErrMergeConflict means both sides edited the same prompt at the same instant.
	ErrMergeConflict = errors.New("merge conflict")
	// ErrInvalidSnapshot means a set of records violates snapshot invariants.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Conflict describes one id whose local and remote versions share a
// timestamp but differ in content. Both versions are kept so the caller
// can present them and choose.
type Conflict struct {
	ID     string
	Local  State
	Remote State
}

// ConflictError is returned when a sync cannot proceed without a resolution.
// Use errors.Is(err, ErrMergeConflict) and errors.As(err, &conflictErr) to inspect.
type ConflictError struct {
	Conflicts []Conflict
}

// Error implements error.
func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s (local %s, remote %s)", c.ID, c.Local, c.Remote))
	}
	return fmt.Sprintf("%v on %d prompt(s): %s", ErrMergeConflict, len(e.Conflicts), strings.Join(parts, "; "))
}

// Unwrap returns ErrMergeConflict for errors.Is.
func (e *ConflictError) Unwrap() error { return ErrMergeConflict }

var _ error = (*ConflictError)(nil)
