package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"pv-go/internal/config"
	"pv-go/internal/pv"
)

const timeLayout = "2006-01-02 15:04:05"

func printConfig(w io.Writer, cfg *config.Config) {
	remote := cfg.Remote.Type
	if remote == "" {
		remote = "(none)"
	}
	fmt.Fprintf(w, "Base Dir:    %s\n", cfg.BaseDir)
	fmt.Fprintf(w, "Log Dir:     %s\n", cfg.LogDir)
	fmt.Fprintf(w, "Store:       %s %s\n", cfg.Store.Type, cfg.Store.Path)
	fmt.Fprintf(w, "Remote:      %s\n", remote)
	if cfg.Remote.Type == "gist" && cfg.Remote.GistID != "" {
		fmt.Fprintf(w, "Gist ID:     %s\n", cfg.Remote.GistID)
	}
	fmt.Fprintf(w, "Sync Mode:   %s (auto_sync=%t)\n", cfg.Sync.DefaultMode, cfg.Sync.AutoSync)
	fmt.Fprintf(w, "Encryption:  %s\n", cfg.Encryption.Type)
	fmt.Fprintf(w, "History:     %s %s\n", cfg.History.Type, cfg.History.Path)
}

func printPrompt(w io.Writer, p pv.Prompt) {
	fmt.Fprintf(w, "ID:          %s\n", p.ID)
	fmt.Fprintf(w, "Title:       %s\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", p.Description)
	}
	if p.Category != "" {
		fmt.Fprintf(w, "Category:    %s\n", p.Category)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(w, "Tags:        %s\n", strings.Join(p.Tags, ", "))
	}
	if vars := pv.Variables(p.Content); len(vars) > 0 {
		fmt.Fprintf(w, "Variables:   %s\n", strings.Join(vars, ", "))
	}
	fmt.Fprintf(w, "Created:     %s\n", p.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintf(w, "Updated:     %s\n", p.UpdatedAt.Local().Format(timeLayout))
	fmt.Fprintf(w, "\n%s\n", strings.TrimRight(p.Content, "\n"))
}

// promptJSON is the --format json shape of a prompt.
type promptJSON struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content"`
	Tags        []string  `json:"tags"`
	Category    string    `json:"category,omitempty"`
	Variables   []string  `json:"variables,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func printPrompts(w io.Writer, prompts []pv.Prompt, format string) error {
	switch format {
	case "json":
		out := make([]promptJSON, 0, len(prompts))
		for _, p := range prompts {
			tags := p.Tags
			if tags == nil {
				tags = []string{}
			}
			out = append(out, promptJSON{
				ID:          p.ID,
				Title:       p.Title,
				Description: p.Description,
				Content:     p.Content,
				Tags:        tags,
				Category:    p.Category,
				Variables:   pv.Variables(p.Content),
				CreatedAt:   p.CreatedAt,
				UpdatedAt:   p.UpdatedAt,
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "simple", "":
		if len(prompts) == 0 {
			fmt.Fprintln(w, "No prompts.")
			return nil
		}
		for _, p := range prompts {
			fmt.Fprintf(w, "%s  %s%s\n", p.ID, p.Title, tagSuffix(p.Tags))
		}
		return nil
	case "detailed":
		if len(prompts) == 0 {
			fmt.Fprintln(w, "No prompts.")
			return nil
		}
		for i, p := range prompts {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s  %s%s\n", p.ID, p.Title, tagSuffix(p.Tags))
			if p.Description != "" {
				fmt.Fprintf(w, "    %s\n", p.Description)
			}
			if p.Category != "" {
				fmt.Fprintf(w, "    category: %s\n", p.Category)
			}
			fmt.Fprintf(w, "    updated:  %s\n", p.UpdatedAt.Local().Format(timeLayout))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %q (want simple, detailed or json)", format)
	}
}

func tagSuffix(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return "  [" + strings.Join(tags, ", ") + "]"
}

func printStats(w io.Writer, st pv.Stats) {
	fmt.Fprintf(w, "Prompts:    %d\n", st.TotalPrompts)
	fmt.Fprintf(w, "Tags:       %d\n", st.TotalTags)
	fmt.Fprintf(w, "Categories: %d\n", st.TotalCategories)
	if st.Tombstones > 0 {
		fmt.Fprintf(w, "Deleted:    %d (kept until synced)\n", st.Tombstones)
	}

	if len(st.TagCounts) > 0 {
		fmt.Fprintln(w, "\nBy tag:")
		for _, e := range pv.Ranked(st.TagCounts) {
			fmt.Fprintf(w, "  %-20s %d\n", e.Name, e.Count)
		}
	}
	if len(st.CategoryCounts) > 0 {
		fmt.Fprintln(w, "\nBy category:")
		for _, e := range pv.Ranked(st.CategoryCounts) {
			fmt.Fprintf(w, "  %-20s %d\n", e.Name, e.Count)
		}
	}
}

func printReport(w io.Writer, r *pv.SyncReport) {
	if r.Interrupted != nil {
		fmt.Fprintf(w, "Note: sync #%d started %s did not finish (%s); the remote was behind local until now.\n",
			r.Interrupted.ID, r.Interrupted.StartedAt.Local().Format(timeLayout), r.Interrupted.Status)
	}

	defer printSkippedConflicts(w, r.Conflicts)

	if !r.LocalSaved && !r.RemoteReplaced {
		fmt.Fprintf(w, "Already in sync (%s).\n", r.Mode)
		return
	}

	fmt.Fprintf(w, "Sync complete (%s): %d uploaded, %d downloaded", r.Mode, r.Uploaded, r.Downloaded)
	if r.Skipped > 0 {
		fmt.Fprintf(w, ", %d skipped", r.Skipped)
	}
	if r.Resolved > 0 {
		fmt.Fprintf(w, ", %d conflict(s) forced", r.Resolved)
	}
	if r.PrunedTombstones > 0 {
		fmt.Fprintf(w, ", %d old deletion(s) pruned", r.PrunedTombstones)
	}
	fmt.Fprintln(w, ".")
}

// stateTitle names what one side holds for an id.
func stateTitle(s pv.State) string {
	switch {
	case s.Live():
		return s.Prompt.Title
	case s.Deleted():
		return "(deleted)"
	default:
		return "(absent)"
	}
}

func printPlan(w io.Writer, plan *pv.SyncPlan) {
	for _, e := range plan.Entries {
		switch e.Action {
		case pv.ActionNone:
			continue
		case pv.ActionUpload:
			fmt.Fprintf(w, "upload    %s  %s\n", e.ID, stateTitle(e.Local))
		case pv.ActionDownload:
			fmt.Fprintf(w, "download  %s  %s\n", e.ID, stateTitle(e.Remote))
		default:
			fmt.Fprintf(w, "%-9s %s  local %s, remote %s\n", e.Action, e.ID, e.Local, e.Remote)
		}
	}
	fmt.Fprintf(w, "Dry run (%s): %d to upload, %d to download, %d skipped, %d conflict(s).\n",
		plan.Mode, plan.Count(pv.ActionUpload), plan.Count(pv.ActionDownload),
		plan.Count(pv.ActionSkip), len(plan.Conflicts))
}

func printConflicts(w io.Writer, conflicts []pv.Conflict) {
	for _, c := range conflicts {
		fmt.Fprintf(w, "Conflict on %s: local %q %s, remote %q %s\n",
			c.ID, stateTitle(c.Local), c.Local, stateTitle(c.Remote), c.Remote)
	}
}

// printSkippedConflicts lists the ids a one-direction sync could not settle.
func printSkippedConflicts(w io.Writer, conflicts []pv.Conflict) {
	if len(conflicts) == 0 {
		return
	}
	printConflicts(w, conflicts)
	fmt.Fprintf(w, "%d conflict(s) left untouched. Run sync --force --prefer local|remote to settle them.\n", len(conflicts))
}

func printHistory(w io.Writer, records []*pv.SyncRecord) {
	for _, r := range records {
		duration := ""
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond).String()
		}
		force := ""
		if r.Force {
			force = " (forced)"
		}
		fmt.Fprintf(w, "#%d  %s  %-14s  %-13s  up %d  down %d  %s%s\n",
			r.ID,
			r.StartedAt.Local().Format(timeLayout),
			r.Mode,
			r.Status,
			r.Uploaded,
			r.Downloaded,
			duration,
			force,
		)
		if r.Error != "" {
			fmt.Fprintf(w, "      %s\n", r.Error)
		}
	}
}
