package pv

import "time"

// SyncStatus is the outcome recorded for one sync cycle.
type SyncStatus string

const (
	StatusRunning SyncStatus = "running"
	// StatusSuccess: every planned write completed.
	StatusSuccess SyncStatus = "success"
	// StatusNoop: the sides already agreed.
	StatusNoop SyncStatus = "noop"
	// StatusAborted: the cycle stopped before writing anything.
	StatusAborted SyncStatus = "aborted"
	// StatusLocalWritten: the local store was saved but the remote replace
	// failed. The next sync repairs it.
	StatusLocalWritten SyncStatus = "local_written"
)

// SyncRecord is one row of sync history.
type SyncRecord struct {
	ID         int64
	Mode       string
	Force      bool
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Status     SyncStatus
	Uploaded   int
	Downloaded int
	Conflicts  int
	Error      string
}

// SyncOutcome is what a finished cycle reports to History.
type SyncOutcome struct {
	Status     SyncStatus
	Uploaded   int
	Downloaded int
	Conflicts  int
	Error      string
	FinishedAt time.Time
}

// History records sync cycles so an interrupted cycle can be detected later.
type History interface {
	// StartSync records a new running cycle and returns its id.
	StartSync(mode string, force bool, startedAt time.Time) (int64, error)

	// FinishSync records the outcome of a cycle.
	FinishSync(id int64, outcome SyncOutcome) error

	// LastSync returns the most recent cycle, or nil if none was recorded.
	LastSync() (*SyncRecord, error)

	// ListSyncs returns up to limit cycles, newest first.
	ListSyncs(limit int) ([]*SyncRecord, error)

	// Close releases the underlying storage.
	Close() error
}

// NopHistory records nothing.
type NopHistory struct{}

func (NopHistory) StartSync(string, bool, time.Time) (int64, error) { return 0, nil }
func (NopHistory) FinishSync(int64, SyncOutcome) error               { return nil }
func (NopHistory) LastSync() (*SyncRecord, error)                    { return nil, nil }
func (NopHistory) ListSyncs(int) ([]*SyncRecord, error)              { return nil, nil }
func (NopHistory) Close() error                                      { return nil }

var _ History = NopHistory{}
