package pv

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoMirror is returned by sync operations when no remote is configured.
var ErrNoMirror = errors.New("no remote mirror configured")

// SyncConfig is the sync behaviour fixed at construction.
type SyncConfig struct {
	// DefaultMode is used by DefaultRequest.
	DefaultMode SyncMode
	// TombstoneRetention is how long tombstones are kept after a two-way
	// sync. Zero keeps them forever.
	TombstoneRetention time.Duration
}

// SyncRequest selects how one sync cycle runs.
type SyncRequest struct {
	Mode SyncMode
	// Force settles equal-timestamp conflicts in favour of Prefer instead of
	// aborting the cycle.
	Force bool
	// Prefer is the winning side when Force is set. SideNone picks remote for
	// download-only and local otherwise.
	Prefer Side
}

// SyncReport summarizes a completed sync cycle.
type SyncReport struct {
	Mode       SyncMode
	Plan       *SyncPlan
	Uploaded   int
	Downloaded int
	Skipped    int
	Resolved   int
	// Conflicts are the ids a one-direction sync left untouched because both
	// sides changed them at the same instant.
	Conflicts        []Conflict
	PrunedTombstones int
	LocalSaved       bool
	RemoteReplaced   bool
	Revision         string
	// Interrupted is the previous cycle when it stopped between the local
	// save and the remote replace.
	Interrupted *SyncRecord
}

// PVService is the orchestration layer between the CLI and the store,
// mirror and history. It owns the sync cycle and the CRUD operations.
type PVService struct {
	store   LocalStore
	mirror  Mirror
	history History
	logger  Logger
	clock   Clock
	idgen   IDGenerator
	cfg     SyncConfig
}

// NewPVService creates a PVService. mirror may be nil when no remote is
// configured; sync operations then fail with ErrNoMirror. A nil history
// records nothing.
func NewPVService(store LocalStore, mirror Mirror, history History, logger Logger, clock Clock, idgen IDGenerator, cfg SyncConfig) *PVService {
	if history == nil {
		history = NopHistory{}
	}
	return &PVService{
		store:   store,
		mirror:  mirror,
		history: history,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
		cfg:     cfg,
	}
}

// HasMirror reports whether a remote is configured.
func (s *PVService) HasMirror() bool { return s.mirror != nil }

// DefaultRequest returns a request for the configured default mode.
func (s *PVService) DefaultRequest(force bool) SyncRequest {
	return SyncRequest{Mode: s.cfg.DefaultMode, Force: force}
}

// Library loads the local snapshot.
func (s *PVService) Library() (*Snapshot, error) {
	snap, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading local store: %w", err)
	}
	return snap, nil
}

// AddPrompt stores a new prompt and returns it with its id and timestamps.
func (s *PVService) AddPrompt(p Prompt) (Prompt, error) {
	var added Prompt
	err := s.edit(func(rs *RecordStore) error {
		var err error
		added, err = rs.Insert(p)
		return err
	})
	if err != nil {
		return Prompt{}, err
	}
	s.logger.Info("prompt added", "id", added.ID, "title", added.Title)
	return added, nil
}

// EditPrompt applies mutate to the prompt with the given id.
func (s *PVService) EditPrompt(id string, mutate func(*Prompt)) (Prompt, error) {
	var edited Prompt
	err := s.edit(func(rs *RecordStore) error {
		var err error
		edited, err = rs.Update(id, mutate)
		return err
	})
	if err != nil {
		return Prompt{}, err
	}
	s.logger.Info("prompt updated", "id", edited.ID)
	return edited, nil
}

// RemovePrompt deletes the prompt with the given id, leaving a tombstone.
func (s *PVService) RemovePrompt(id string) (Prompt, error) {
	var removed Prompt
	err := s.edit(func(rs *RecordStore) error {
		var err error
		removed, err = rs.Remove(id)
		return err
	})
	if err != nil {
		return Prompt{}, err
	}
	s.logger.Info("prompt removed", "id", removed.ID)
	return removed, nil
}

// edit loads the store, applies fn and saves the result.
func (s *PVService) edit(fn func(rs *RecordStore) error) error {
	rs := NewRecordStore(s.store, s.clock, s.idgen)
	if _, err := rs.Load(); err != nil {
		return fmt.Errorf("loading local store: %w", err)
	}
	if err := fn(rs); err != nil {
		return err
	}
	if err := rs.Save(rs.Snapshot()); err != nil {
		return fmt.Errorf("saving local store: %w", err)
	}
	return nil
}

// Import merges an external snapshot into the local library through the
// merge engine in download-only mode, with the imported side playing the
// remote. Equal-timestamp conflicts abort unless force is set, in which case
// the imported version wins. Returns the number of prompts taken from src.
func (s *PVService) Import(src *Snapshot, force bool) (int, error) {
	local, err := s.Library()
	if err != nil {
		return 0, err
	}
	plan := Plan(local, src, ModeDownloadOnly)
	if plan.HasConflicts() {
		if !force {
			return 0, plan.Err()
		}
		plan = PlanWithResolution(local, src, ModeDownloadOnly, SideRemote)
	}
	if plan.NewLocal.Equal(local) {
		return 0, nil
	}
	if err := s.store.Save(plan.NewLocal); err != nil {
		return 0, fmt.Errorf("saving local store: %w", err)
	}
	n := plan.Count(ActionDownload)
	s.logger.Info("library imported", "downloaded", n)
	return n, nil
}

// PlanOnly computes the plan a sync would apply without writing anything.
func (s *PVService) PlanOnly(ctx context.Context, mode SyncMode) (*SyncPlan, error) {
	if s.mirror == nil {
		return nil, ErrNoMirror
	}
	remote, err := s.mirror.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching remote: %w", err)
	}
	local, err := s.Library()
	if err != nil {
		return nil, err
	}
	return Plan(local, remote.Snapshot, mode), nil
}

// Sync runs one sync cycle: fetch the remote, load local, plan, then write
// local followed by remote. Nothing is written if the fetch or the load fails,
// or if a two-way plan has conflicts and Force is not set. If the remote replace fails after local was saved,
// the error says so and the cycle is recorded as StatusLocalWritten.
func (s *PVService) Sync(ctx context.Context, req SyncRequest) (*SyncReport, error) {
	if s.mirror == nil {
		return nil, ErrNoMirror
	}

	interrupted := s.interruptedSync()

	runID, err := s.history.StartSync(req.Mode.String(), req.Force, s.clock.Now())
	if err != nil {
		s.logger.Warn("recording sync start failed", "error", err)
	}

	s.logger.Info("sync started", "mode", req.Mode, "force", req.Force)
	report, status, err := s.runSync(ctx, req)

	outcome := SyncOutcome{Status: status, FinishedAt: s.clock.Now()}
	if report != nil {
		outcome.Uploaded = report.Uploaded
		outcome.Downloaded = report.Downloaded
		outcome.Conflicts = len(report.Conflicts)
	}
	var conflictErr *ConflictError
	if errors.As(err, &conflictErr) {
		outcome.Conflicts = len(conflictErr.Conflicts)
	}
	if err != nil {
		outcome.Error = err.Error()
	}
	if herr := s.history.FinishSync(runID, outcome); herr != nil {
		s.logger.Warn("recording sync outcome failed", "error", herr)
	}

	if err != nil {
		s.logger.Error("sync failed", "mode", req.Mode, "status", status, "error", err)
		return nil, err
	}
	report.Interrupted = interrupted
	s.logger.Info("sync complete", "mode", req.Mode, "status", status,
		"uploaded", report.Uploaded, "downloaded", report.Downloaded, "skipped", report.Skipped)
	return report, nil
}

func (s *PVService) runSync(ctx context.Context, req SyncRequest) (*SyncReport, SyncStatus, error) {
	remote, err := s.mirror.Fetch(ctx)
	if err != nil {
		return nil, StatusAborted, fmt.Errorf("fetching remote: %w", err)
	}

	local, err := s.Library()
	if err != nil {
		return nil, StatusAborted, err
	}

	plan := Plan(local, remote.Snapshot, req.Mode)
	resolved := 0
	if plan.HasConflicts() && !req.Force {
		for _, c := range plan.Conflicts {
			s.logger.Warn("conflict", "id", c.ID, "local", c.Local.String(), "remote", c.Remote.String())
		}
		// One-direction modes apply the rest of the plan and leave the
		// conflicting ids untouched on both sides.
		if req.Mode == ModeTwoWay {
			return nil, StatusAborted, plan.Err()
		}
	}
	if plan.HasConflicts() && req.Force {
		side := resolutionSide(req)
		resolved = len(plan.Conflicts)
		s.logger.Info("resolving conflicts", "count", resolved, "prefer", side)
		plan = PlanWithResolution(local, remote.Snapshot, req.Mode, side)
	}

	report := &SyncReport{
		Mode:       req.Mode,
		Plan:       plan,
		Uploaded:   plan.Count(ActionUpload),
		Downloaded: plan.Count(ActionDownload),
		Skipped:    plan.Count(ActionSkip),
		Resolved:   resolved,
		Conflicts:  plan.Conflicts,
		Revision:   remote.Revision,
	}

	newLocal, newRemote := plan.NewLocal, plan.NewRemote
	if req.Mode == ModeTwoWay && s.cfg.TombstoneRetention > 0 {
		cutoff := s.clock.Now().Add(-s.cfg.TombstoneRetention)
		var prunedLocal, prunedRemote int
		newLocal, prunedLocal = newLocal.PruneTombstones(cutoff)
		newRemote, prunedRemote = newRemote.PruneTombstones(cutoff)
		report.PrunedTombstones = max(prunedLocal, prunedRemote)
	}

	localChanged := !newLocal.Equal(local)
	remoteChanged := !newRemote.Equal(remote.Snapshot)
	if !localChanged && !remoteChanged {
		return report, StatusNoop, nil
	}

	if localChanged {
		if err := s.store.Save(newLocal); err != nil {
			return report, StatusAborted, fmt.Errorf("saving local store: %w", err)
		}
		report.LocalSaved = true
		s.logger.Debug("local store saved", "prompts", newLocal.Len())
	}

	if remoteChanged {
		rev, err := s.mirror.Replace(ctx, newRemote, remote.Revision)
		if err != nil {
			if report.LocalSaved {
				return report, StatusLocalWritten, fmt.Errorf("local store updated but remote replace failed, run sync again: %w", err)
			}
			return report, StatusAborted, fmt.Errorf("replacing remote document: %w", err)
		}
		report.RemoteReplaced = true
		report.Revision = rev
		s.logger.Debug("remote document replaced", "revision", rev, "prompts", newRemote.Len())
	}

	return report, StatusSuccess, nil
}

// interruptedSync returns the previous cycle if it never finished its writes.
func (s *PVService) interruptedSync() *SyncRecord {
	last, err := s.history.LastSync()
	if err != nil {
		s.logger.Warn("reading sync history failed", "error", err)
		return nil
	}
	if last == nil || (last.Status != StatusLocalWritten && last.Status != StatusRunning) {
		return nil
	}
	s.logger.Warn("previous sync did not finish, remote may be behind local",
		"sync_id", last.ID, "status", last.Status, "started_at", last.StartedAt)
	return last
}

// GetHistory returns the most recent sync cycles.
func (s *PVService) GetHistory(limit int) ([]*SyncRecord, error) {
	return s.history.ListSyncs(limit)
}

func resolutionSide(req SyncRequest) Side {
	if req.Prefer != SideNone {
		return req.Prefer
	}
	if req.Mode == ModeDownloadOnly {
		return SideRemote
	}
	return SideLocal
}
