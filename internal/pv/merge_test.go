package pv_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"pv-go/internal/pv"
	"pv-go/internal/testutil"
)

var (
	p      = testutil.NewPrompt
	at     = testutil.At
	minute = time.Minute
)

func snap(t *testing.T, prompts ...pv.Prompt) *pv.Snapshot {
	t.Helper()
	return testutil.MustSnapshot(t, prompts, nil)
}

func withContent(pr pv.Prompt, content string) pv.Prompt {
	pr.Content = content
	return pr
}

func tomb(id string, deleted time.Time) pv.Tombstone {
	return pv.Tombstone{ID: id, DeletedAt: deleted}
}

func entry(t *testing.T, plan *pv.SyncPlan, id string) pv.PlanEntry {
	t.Helper()
	for _, e := range plan.Entries {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("plan has no entry for %s", id)
	return pv.PlanEntry{}
}

func TestPlan_TwoWayClassification(t *testing.T) {
	tests := []struct {
		name   string
		local  *pv.Snapshot
		remote *pv.Snapshot
		want   pv.Action
	}{
		{
			name:   "remote only is downloaded",
			local:  snap(t),
			remote: snap(t, p("1", "a", at(0))),
			want:   pv.ActionDownload,
		},
		{
			name:   "local only is uploaded",
			local:  snap(t, p("1", "a", at(0))),
			remote: snap(t),
			want:   pv.ActionUpload,
		},
		{
			name:   "newer local is uploaded",
			local:  snap(t, withContent(p("1", "a", at(2*minute)), "new")),
			remote: snap(t, p("1", "a", at(minute))),
			want:   pv.ActionUpload,
		},
		{
			name:   "newer remote is downloaded",
			local:  snap(t, p("1", "a", at(minute))),
			remote: snap(t, withContent(p("1", "a", at(2*minute)), "new")),
			want:   pv.ActionDownload,
		},
		{
			name:   "same stamp different content conflicts",
			local:  snap(t, withContent(p("1", "a", at(minute)), "A")),
			remote: snap(t, withContent(p("1", "a", at(minute)), "B")),
			want:   pv.ActionConflict,
		},
		{
			name:   "identical records need nothing",
			local:  snap(t, p("1", "a", at(minute))),
			remote: snap(t, p("1", "a", at(minute))),
			want:   pv.ActionNone,
		},
		{
			name:   "tag order does not matter",
			local:  snap(t, pv.Prompt{ID: "1", Tags: []string{"x", "y"}, CreatedAt: at(0), UpdatedAt: at(0)}),
			remote: snap(t, pv.Prompt{ID: "1", Tags: []string{"y", "x", "x"}, CreatedAt: at(0), UpdatedAt: at(0)}),
			want:   pv.ActionNone,
		},
		{
			name:   "local delete after remote edit is uploaded",
			local:  testutil.MustSnapshot(t, nil, []pv.Tombstone{tomb("1", at(2*minute))}),
			remote: snap(t, p("1", "a", at(minute))),
			want:   pv.ActionUpload,
		},
		{
			name:   "remote delete after local edit is downloaded",
			local:  snap(t, p("1", "a", at(minute))),
			remote: testutil.MustSnapshot(t, nil, []pv.Tombstone{tomb("1", at(2*minute))}),
			want:   pv.ActionDownload,
		},
		{
			name:   "local edit after remote delete revives the prompt",
			local:  snap(t, p("1", "a", at(3*minute))),
			remote: testutil.MustSnapshot(t, nil, []pv.Tombstone{tomb("1", at(2*minute))}),
			want:   pv.ActionUpload,
		},
		{
			name:   "local tombstone unknown to remote is uploaded",
			local:  testutil.MustSnapshot(t, nil, []pv.Tombstone{tomb("1", at(minute))}),
			remote: snap(t),
			want:   pv.ActionUpload,
		},
		{
			name:   "edit and delete at the same instant conflict",
			local:  snap(t, p("1", "a", at(minute))),
			remote: testutil.MustSnapshot(t, nil, []pv.Tombstone{tomb("1", at(minute))}),
			want:   pv.ActionConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := pv.Plan(tt.local, tt.remote, pv.ModeTwoWay)
			if got := entry(t, plan, "1").Action; got != tt.want {
				t.Errorf("Plan() action = %v, want %v", got, tt.want)
			}
			if tt.want == pv.ActionConflict {
				if !plan.NewLocal.Equal(tt.local) || !plan.NewRemote.Equal(tt.remote) {
					t.Error("conflicting entry was applied to a side")
				}
				return
			}
			// Every applied action leaves both sides agreeing on the id.
			if !plan.NewLocal.Equal(plan.NewRemote) {
				t.Error("NewLocal and NewRemote differ after a two-way plan")
			}
		})
	}
}

func TestPlan_DirectionRestriction(t *testing.T) {
	local := snap(t, p("up", "local newer", at(2*minute)), p("down", "remote newer", at(minute)))
	remote := snap(t, p("up", "local newer", at(minute)), withContent(p("down", "remote newer", at(2*minute)), "new"))

	t.Run("upload only", func(t *testing.T) {
		plan := pv.Plan(local, remote, pv.ModeUploadOnly)
		if got := entry(t, plan, "up").Action; got != pv.ActionUpload {
			t.Errorf("up action = %v, want upload", got)
		}
		if got := entry(t, plan, "down").Action; got != pv.ActionSkip {
			t.Errorf("down action = %v, want skip", got)
		}
		if !plan.NewLocal.Equal(local) {
			t.Error("upload-only plan changed local")
		}
	})

	t.Run("download only", func(t *testing.T) {
		plan := pv.Plan(local, remote, pv.ModeDownloadOnly)
		if got := entry(t, plan, "down").Action; got != pv.ActionDownload {
			t.Errorf("down action = %v, want download", got)
		}
		if got := entry(t, plan, "up").Action; got != pv.ActionSkip {
			t.Errorf("up action = %v, want skip", got)
		}
		if !plan.NewRemote.Equal(remote) {
			t.Error("download-only plan changed remote")
		}
	})
}

func TestPlan_Scenarios(t *testing.T) {
	t.Run("local only record is uploaded", func(t *testing.T) {
		local := snap(t, p("1", "a", at(10*minute)))
		plan := pv.Plan(local, pv.EmptySnapshot(), pv.ModeTwoWay)

		if got := entry(t, plan, "1").Action; got != pv.ActionUpload {
			t.Errorf("action = %v, want upload", got)
		}
		if !plan.NewRemote.Equal(local) {
			t.Errorf("NewRemote ids = %v, want [1]", plan.NewRemote.AllIDs())
		}
	})

	t.Run("equal stamps with different content conflict", func(t *testing.T) {
		local := snap(t, withContent(p("1", "a", at(5*minute)), "A"))
		remote := snap(t, withContent(p("1", "a", at(5*minute)), "B"))
		plan := pv.Plan(local, remote, pv.ModeTwoWay)

		err := plan.Err()
		if !errors.Is(err, pv.ErrMergeConflict) {
			t.Fatalf("Err() = %v, want ErrMergeConflict", err)
		}
		var conflictErr *pv.ConflictError
		if !errors.As(err, &conflictErr) || len(conflictErr.Conflicts) != 1 || conflictErr.Conflicts[0].ID != "1" {
			t.Fatalf("Err() = %v, want a conflict on id 1", err)
		}
		c := conflictErr.Conflicts[0]
		if c.Local.Prompt.Content != "A" || c.Remote.Prompt.Content != "B" {
			t.Errorf("conflict lost a version: local %q remote %q", c.Local.Prompt.Content, c.Remote.Prompt.Content)
		}
		if !plan.NewLocal.Equal(local) || !plan.NewRemote.Equal(remote) {
			t.Error("conflicting plan changed a side")
		}
	})

	t.Run("newer local replaces remote", func(t *testing.T) {
		local := snap(t, withContent(p("1", "a", at(20*minute)), "newer"))
		remote := snap(t, p("1", "a", at(5*minute)))
		plan := pv.Plan(local, remote, pv.ModeTwoWay)

		if got := entry(t, plan, "1").Action; got != pv.ActionUpload {
			t.Errorf("action = %v, want upload", got)
		}
		got, _ := plan.NewRemote.Get("1")
		want, _ := local.Get("1")
		if !got.Equal(want) {
			t.Errorf("NewRemote[1] = %+v, want %+v", got, want)
		}
	})

	t.Run("upload only leaves remote only record alone", func(t *testing.T) {
		local := snap(t, p("1", "a", at(minute)))
		remote := snap(t, p("1", "a", at(minute)), p("2", "b", at(minute)))
		plan := pv.Plan(local, remote, pv.ModeUploadOnly)

		if got := entry(t, plan, "2").Action; got != pv.ActionSkip {
			t.Errorf("action = %v, want skip", got)
		}
		if _, ok := plan.NewLocal.Get("2"); ok {
			t.Error("id 2 was copied to local")
		}
		if _, ok := plan.NewRemote.Get("2"); !ok {
			t.Error("id 2 was removed from remote")
		}
		if !plan.IsNoop() {
			t.Error("IsNoop() = false, want true")
		}
	})
}

func TestPlan_Deterministic(t *testing.T) {
	local := testutil.MustSnapshot(t,
		[]pv.Prompt{p("1", "a", at(minute)), p("3", "c", at(3*minute)), withContent(p("4", "d", at(minute)), "L")},
		[]pv.Tombstone{tomb("5", at(minute))},
	)
	remote := testutil.MustSnapshot(t,
		[]pv.Prompt{p("2", "b", at(minute)), p("3", "c", at(2*minute)), withContent(p("4", "d", at(minute)), "R"), p("5", "e", at(0))},
		nil,
	)

	for _, mode := range []pv.SyncMode{pv.ModeTwoWay, pv.ModeUploadOnly, pv.ModeDownloadOnly, pv.ModeForceUpload, pv.ModeForceDownload} {
		first := pv.Plan(local, remote, mode)
		second := pv.Plan(local, remote, mode)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Plan(%v) differs between identical calls", mode)
		}
	}

	ids := []string{}
	for _, e := range pv.Plan(local, remote, pv.ModeTwoWay).Entries {
		ids = append(ids, e.ID)
	}
	if want := []string{"1", "2", "3", "4", "5"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("entry order = %v, want %v", ids, want)
	}
}

func TestPlan_ForcePrecedence(t *testing.T) {
	local := testutil.MustSnapshot(t,
		[]pv.Prompt{p("1", "old local", at(minute)), withContent(p("2", "tie", at(minute)), "L")},
		[]pv.Tombstone{tomb("3", at(0))},
	)
	remote := testutil.MustSnapshot(t,
		[]pv.Prompt{p("1", "new remote", at(9*minute)), withContent(p("2", "tie", at(minute)), "R"), p("4", "remote only", at(minute))},
		[]pv.Tombstone{tomb("5", at(0))},
	)

	up := pv.Plan(local, remote, pv.ModeForceUpload)
	if !up.NewRemote.Equal(local) {
		t.Errorf("ForceUpload NewRemote ids = %v, want %v", up.NewRemote.AllIDs(), local.AllIDs())
	}
	if up.HasConflicts() {
		t.Error("ForceUpload reported conflicts")
	}
	if !up.NewLocal.Equal(local) {
		t.Error("ForceUpload changed local")
	}

	down := pv.Plan(local, remote, pv.ModeForceDownload)
	if !down.NewLocal.Equal(remote) {
		t.Errorf("ForceDownload NewLocal ids = %v, want %v", down.NewLocal.AllIDs(), remote.AllIDs())
	}
	if down.HasConflicts() {
		t.Error("ForceDownload reported conflicts")
	}
	if !down.NewRemote.Equal(remote) {
		t.Error("ForceDownload changed remote")
	}
}

func TestPlanWithResolution(t *testing.T) {
	local := snap(t, withContent(p("1", "a", at(minute)), "A"))
	remote := snap(t, withContent(p("1", "a", at(minute)), "B"))

	tests := []struct {
		mode    pv.SyncMode
		prefer  pv.Side
		want    pv.Action
		content string // content both sides hold afterwards, "" if they differ
	}{
		{pv.ModeTwoWay, pv.SideLocal, pv.ActionUpload, "A"},
		{pv.ModeTwoWay, pv.SideRemote, pv.ActionDownload, "B"},
		{pv.ModeDownloadOnly, pv.SideRemote, pv.ActionDownload, "B"},
		{pv.ModeDownloadOnly, pv.SideLocal, pv.ActionSkip, ""},
		{pv.ModeUploadOnly, pv.SideRemote, pv.ActionSkip, ""},
	}
	for _, tt := range tests {
		plan := pv.PlanWithResolution(local, remote, tt.mode, tt.prefer)
		e := entry(t, plan, "1")
		if e.Action != tt.want {
			t.Errorf("PlanWithResolution(%v, %v) action = %v, want %v", tt.mode, tt.prefer, e.Action, tt.want)
		}
		if !e.Resolved {
			t.Errorf("PlanWithResolution(%v, %v) entry not marked resolved", tt.mode, tt.prefer)
		}
		if plan.HasConflicts() {
			t.Errorf("PlanWithResolution(%v, %v) left conflicts", tt.mode, tt.prefer)
		}
		if tt.content == "" {
			continue
		}
		l, _ := plan.NewLocal.Get("1")
		r, _ := plan.NewRemote.Get("1")
		if l.Content != tt.content || r.Content != tt.content {
			t.Errorf("PlanWithResolution(%v, %v) contents = %q/%q, want %q", tt.mode, tt.prefer, l.Content, r.Content, tt.content)
		}
	}
}

func TestPlan_InputsUntouched(t *testing.T) {
	local := snap(t, p("1", "a", at(2*minute)))
	remote := snap(t, p("1", "a", at(minute)), p("2", "b", at(minute)))
	localCopy := snap(t, p("1", "a", at(2*minute)))
	remoteCopy := snap(t, p("1", "a", at(minute)), p("2", "b", at(minute)))

	pv.Plan(local, remote, pv.ModeTwoWay)
	pv.Plan(local, remote, pv.ModeForceUpload)

	if !local.Equal(localCopy) || !remote.Equal(remoteCopy) {
		t.Error("Plan() modified an input snapshot")
	}
}

func TestParseSyncMode(t *testing.T) {
	for _, mode := range []pv.SyncMode{pv.ModeTwoWay, pv.ModeUploadOnly, pv.ModeDownloadOnly, pv.ModeForceUpload, pv.ModeForceDownload} {
		got, err := pv.ParseSyncMode(mode.String())
		if err != nil || got != mode {
			t.Errorf("ParseSyncMode(%q) = %v, %v", mode.String(), got, err)
		}
	}
	if got, err := pv.ParseSyncMode(""); err != nil || got != pv.ModeTwoWay {
		t.Errorf("ParseSyncMode(\"\") = %v, %v, want two-way", got, err)
	}
	if _, err := pv.ParseSyncMode("sideways"); err == nil {
		t.Error("ParseSyncMode(sideways) expected error")
	}
	if !pv.ModeForceUpload.IsForce() || pv.ModeUploadOnly.IsForce() {
		t.Error("IsForce() misclassifies modes")
	}
}
