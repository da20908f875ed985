package pv

import "fmt"

// SyncMode selects which directions a sync may move records in.
type SyncMode int

const (
	// ModeTwoWay moves the newer version of each record to the other side.
	ModeTwoWay SyncMode = iota
	// ModeUploadOnly applies only the actions that change the remote side.
	ModeUploadOnly
	// ModeDownloadOnly applies only the actions that change the local side.
	ModeDownloadOnly
	// ModeForceUpload makes the remote an exact copy of local.
	ModeForceUpload
	// ModeForceDownload makes local an exact copy of the remote.
	ModeForceDownload
)

var syncModeNames = map[SyncMode]string{
	ModeTwoWay:        "two-way",
	ModeUploadOnly:    "upload-only",
	ModeDownloadOnly:  "download-only",
	ModeForceUpload:   "force-upload",
	ModeForceDownload: "force-download",
}

func (m SyncMode) String() string {
	if name, ok := syncModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("SyncMode(%d)", int(m))
}

// ParseSyncMode parses the names printed by SyncMode.String.
// An empty string is two-way.
func ParseSyncMode(s string) (SyncMode, error) {
	if s == "" {
		return ModeTwoWay, nil
	}
	for m, name := range syncModeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown sync mode: %q", s)
}

// IsForce reports whether the mode overwrites one side verbatim.
func (m SyncMode) IsForce() bool {
	return m == ModeForceUpload || m == ModeForceDownload
}

// Side names one end of a sync.
type Side int

const (
	SideNone Side = iota
	SideLocal
	SideRemote
)

func (s Side) String() string {
	switch s {
	case SideLocal:
		return "local"
	case SideRemote:
		return "remote"
	default:
		return "none"
	}
}

// ParseSide parses "local", "remote" or "" (none).
func ParseSide(s string) (Side, error) {
	switch s {
	case "":
		return SideNone, nil
	case "local":
		return SideLocal, nil
	case "remote":
		return SideRemote, nil
	default:
		return SideNone, fmt.Errorf("unknown side: %q (want local or remote)", s)
	}
}

// Action is what a plan does with one id.
type Action int

const (
	// ActionNone: both sides already agree.
	ActionNone Action = iota
	// ActionUpload: the remote takes the local state.
	ActionUpload
	// ActionDownload: local takes the remote state.
	ActionDownload
	// ActionConflict: same timestamp, different content. Nothing is applied.
	ActionConflict
	// ActionSkip: a change exists but the mode forbids its direction. Nothing is applied.
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionUpload:
		return "upload"
	case ActionDownload:
		return "download"
	case ActionConflict:
		return "conflict"
	case ActionSkip:
		return "skip"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// PlanEntry is the classification of one id.
type PlanEntry struct {
	ID     string
	Action Action
	Local  State
	Remote State
	// Result is what both sides hold after an upload or download.
	// It is the zero State for the other actions.
	Result State
	// Resolved is set when a conflict was settled by a caller-chosen side.
	Resolved bool
}

// SyncPlan is the output of comparing two snapshots. NewLocal and NewRemote
// are the snapshots each side should hold once the plan is applied.
type SyncPlan struct {
	Mode      SyncMode
	Entries   []PlanEntry
	Conflicts []Conflict
	NewLocal  *Snapshot
	NewRemote *Snapshot
}

// Count returns the number of entries with the given action.
func (p *SyncPlan) Count(a Action) int {
	n := 0
	for _, e := range p.Entries {
		if e.Action == a {
			n++
		}
	}
	return n
}

// HasConflicts reports whether any conflict is left unresolved.
func (p *SyncPlan) HasConflicts() bool { return len(p.Conflicts) > 0 }

// IsNoop reports whether applying the plan would change neither side.
func (p *SyncPlan) IsNoop() bool {
	return p.Count(ActionUpload) == 0 && p.Count(ActionDownload) == 0
}

// Err returns a *ConflictError when conflicts are unresolved, nil otherwise.
func (p *SyncPlan) Err() error {
	if !p.HasConflicts() {
		return nil
	}
	return &ConflictError{Conflicts: p.Conflicts}
}

// Plan compares local against remote for the given mode. It is a pure
// function: no I/O, inputs are not modified, and identical inputs always
// produce an identical plan. Conflicts are reported, never resolved.
func Plan(local, remote *Snapshot, mode SyncMode) *SyncPlan {
	return plan(local, remote, mode, SideNone)
}

// PlanWithResolution is Plan with a caller-chosen winner for conflicts:
// SideLocal turns each conflict into an upload, SideRemote into a download.
// The mode's direction restriction still applies to resolved entries.
func PlanWithResolution(local, remote *Snapshot, mode SyncMode, prefer Side) *SyncPlan {
	return plan(local, remote, mode, prefer)
}

func plan(local, remote *Snapshot, mode SyncMode, prefer Side) *SyncPlan {
	p := &SyncPlan{Mode: mode}
	newLocal := local.clone()
	newRemote := remote.clone()

	for _, id := range unionIDs(local, remote) {
		e := PlanEntry{ID: id, Local: local.state(id), Remote: remote.state(id)}

		switch mode {
		case ModeForceUpload:
			e.Action = forced(e.Local, e.Remote, ActionUpload)
		case ModeForceDownload:
			e.Action = forced(e.Local, e.Remote, ActionDownload)
		default:
			e.Action = compare(e.Local, e.Remote)
			if e.Action == ActionConflict {
				switch prefer {
				case SideLocal:
					e.Action, e.Resolved = ActionUpload, true
				case SideRemote:
					e.Action, e.Resolved = ActionDownload, true
				default:
					p.Conflicts = append(p.Conflicts, Conflict{ID: id, Local: e.Local, Remote: e.Remote})
				}
			}
			if (mode == ModeUploadOnly && e.Action == ActionDownload) ||
				(mode == ModeDownloadOnly && e.Action == ActionUpload) {
				e.Action = ActionSkip
			}
		}

		switch e.Action {
		case ActionUpload:
			e.Result = e.Local
			newRemote.set(id, e.Local)
		case ActionDownload:
			e.Result = e.Remote
			newLocal.set(id, e.Remote)
		}
		p.Entries = append(p.Entries, e)
	}

	p.NewLocal = newLocal
	p.NewRemote = newRemote
	return p
}

// compare classifies one id for a non-forced mode.
func compare(l, r State) Action {
	switch {
	case !l.Exists():
		return ActionDownload
	case !r.Exists():
		return ActionUpload
	case l.Equal(r):
		return ActionNone
	}
	ls, rs := l.Stamp(), r.Stamp()
	switch {
	case ls.After(rs):
		return ActionUpload
	case rs.After(ls):
		return ActionDownload
	default:
		return ActionConflict
	}
}

// forced copies one side over the other wherever they differ.
func forced(l, r State, direction Action) Action {
	if l.Equal(r) {
		return ActionNone
	}
	return direction
}
