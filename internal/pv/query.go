package pv

import (
	"cmp"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// Filter selects prompts. Zero-valued fields do not filter.
type Filter struct {
	Tag           string
	Category      string
	Text          string // matched against title, description and content
	CaseSensitive bool
}

// Query returns the prompts in snap matching every set field of f, ordered by id.
func Query(snap *Snapshot, f Filter) []Prompt {
	var out []Prompt
	for _, p := range snap.Prompts() {
		if f.Tag != "" && !p.HasTag(f.Tag) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Text != "" && !matchText(p, f.Text, f.CaseSensitive) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FilterByTag returns the prompts carrying tag.
func FilterByTag(snap *Snapshot, tag string) []Prompt {
	return Query(snap, Filter{Tag: tag})
}

// FilterByCategory returns the prompts in category.
func FilterByCategory(snap *Snapshot, category string) []Prompt {
	return Query(snap, Filter{Category: category})
}

// Search returns the prompts whose title, description or content contains text.
func Search(snap *Snapshot, text string, caseSensitive bool) []Prompt {
	return Query(snap, Filter{Text: text, CaseSensitive: caseSensitive})
}

func matchText(p Prompt, text string, caseSensitive bool) bool {
	fields := []string{p.Title, p.Description, p.Content}
	if !caseSensitive {
		text = strings.ToLower(text)
	}
	for _, f := range fields {
		if !caseSensitive {
			f = strings.ToLower(f)
		}
		if strings.Contains(f, text) {
			return true
		}
	}
	return false
}

// Find looks a prompt up by id, then by exact title.
// A title shared by several prompts is ambiguous and is not matched.
func Find(snap *Snapshot, identifier string) (Prompt, error) {
	if p, ok := snap.Get(identifier); ok {
		return p, nil
	}
	var matches []Prompt
	for _, p := range snap.Prompts() {
		if p.Title == identifier {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return Prompt{}, fmt.Errorf("%w: %s", ErrNotFound, identifier)
	case 1:
		return matches[0], nil
	default:
		return Prompt{}, fmt.Errorf("title %q matches %d prompts, use the id", identifier, len(matches))
	}
}

// AllTags returns every distinct tag in snap, sorted.
func AllTags(snap *Snapshot) []string {
	seen := make(map[string]struct{})
	for _, p := range snap.prompts {
		for _, t := range p.Tags {
			seen[t] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Categories returns every distinct non-empty category in snap, sorted.
func Categories(snap *Snapshot) []string {
	seen := make(map[string]struct{})
	for _, p := range snap.prompts {
		if p.Category != "" {
			seen[p.Category] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Stats summarizes a library.
type Stats struct {
	TotalPrompts    int
	TotalTags       int
	TotalCategories int
	Tombstones      int
	TagCounts       map[string]int
	CategoryCounts  map[string]int
}

// CountEntry is one row of a ranked count.
type CountEntry struct {
	Name  string
	Count int
}

// ComputeStats counts prompts per tag and per category.
func ComputeStats(snap *Snapshot) Stats {
	st := Stats{
		TotalPrompts:   snap.Len(),
		Tombstones:     len(snap.tombstones),
		TagCounts:      make(map[string]int),
		CategoryCounts: make(map[string]int),
	}
	for _, p := range snap.prompts {
		for _, t := range p.Tags {
			st.TagCounts[t]++
		}
		if p.Category != "" {
			st.CategoryCounts[p.Category]++
		}
	}
	st.TotalTags = len(st.TagCounts)
	st.TotalCategories = len(st.CategoryCounts)
	return st
}

// Ranked returns counts ordered by count descending, then name.
func Ranked(counts map[string]int) []CountEntry {
	out := make([]CountEntry, 0, len(counts))
	for name, n := range counts {
		out = append(out, CountEntry{Name: name, Count: n})
	}
	slices.SortFunc(out, func(a, b CountEntry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// SortBy orders listings.
type SortBy string

const (
	SortRecency SortBy = "recency" // newest created first
	SortTitle   SortBy = "title"
	SortUpdated SortBy = "updated" // most recently edited first
)

// ParseSortBy validates a sort key. An empty string is recency.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(s) {
	case "":
		return SortRecency, nil
	case SortRecency, SortTitle, SortUpdated:
		return SortBy(s), nil
	default:
		return "", fmt.Errorf("unknown sort key: %q (want recency, title or updated)", s)
	}
}

// SortPrompts sorts prompts in place. Ties break on id so output is stable.
func SortPrompts(prompts []Prompt, by SortBy) {
	slices.SortFunc(prompts, func(a, b Prompt) int {
		var c int
		switch by {
		case SortTitle:
			c = cmp.Compare(a.Title, b.Title)
		case SortUpdated:
			c = b.UpdatedAt.Compare(a.UpdatedAt)
		default:
			c = b.CreatedAt.Compare(a.CreatedAt)
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Variables lists the distinct {{name}} placeholders in content, in order of
// first appearance. Substitution is left to the caller.
func Variables(content string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}
