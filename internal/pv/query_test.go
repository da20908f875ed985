package pv_test

import (
	"errors"
	"reflect"
	"testing"

	"pv-go/internal/pv"
)

func queryFixture(t *testing.T) *pv.Snapshot {
	t.Helper()
	return snap(t,
		pv.Prompt{ID: "1", Title: "Code Review", Description: "Review a diff", Content: "Review {{diff}} for {{lang}}", Tags: []string{"code", "review"}, Category: "dev", CreatedAt: at(0), UpdatedAt: at(3 * minute)},
		pv.Prompt{ID: "2", Title: "Summarize", Content: "Summarize {{ text }} in {{lang}}, {{text}} again", Tags: []string{"writing"}, Category: "text", CreatedAt: at(minute), UpdatedAt: at(minute)},
		pv.Prompt{ID: "3", Title: "Commit message", Content: "Write a commit message", Tags: []string{"code", "git"}, Category: "dev", CreatedAt: at(2 * minute), UpdatedAt: at(2 * minute)},
		pv.Prompt{ID: "4", Title: "Summarize", Content: "duplicate title", CreatedAt: at(2 * minute), UpdatedAt: at(2 * minute)},
	)
}

func ids(prompts []pv.Prompt) []string {
	out := []string{}
	for _, pr := range prompts {
		out = append(out, pr.ID)
	}
	return out
}

func TestQuery(t *testing.T) {
	s := queryFixture(t)
	tests := []struct {
		name   string
		filter pv.Filter
		want   []string
	}{
		{name: "no filter", filter: pv.Filter{}, want: []string{"1", "2", "3", "4"}},
		{name: "tag", filter: pv.Filter{Tag: "code"}, want: []string{"1", "3"}},
		{name: "category", filter: pv.Filter{Category: "dev"}, want: []string{"1", "3"}},
		{name: "tag and category", filter: pv.Filter{Tag: "git", Category: "dev"}, want: []string{"3"}},
		{name: "text in title", filter: pv.Filter{Text: "commit"}, want: []string{"3"}},
		{name: "text in description", filter: pv.Filter{Text: "a diff"}, want: []string{"1"}},
		{name: "text in content", filter: pv.Filter{Text: "DUPLICATE"}, want: []string{"4"}},
		{name: "case sensitive miss", filter: pv.Filter{Text: "DUPLICATE", CaseSensitive: true}, want: []string{}},
		{name: "case sensitive hit", filter: pv.Filter{Text: "Review", CaseSensitive: true}, want: []string{"1"}},
		{name: "no match", filter: pv.Filter{Tag: "nope"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(pv.Query(s, tt.filter)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Query() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := ids(pv.FilterByTag(s, "review")); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("FilterByTag() = %v", got)
	}
	if got := ids(pv.FilterByCategory(s, "text")); !reflect.DeepEqual(got, []string{"2"}) {
		t.Errorf("FilterByCategory() = %v", got)
	}
	if got := ids(pv.Search(s, "summarize", false)); !reflect.DeepEqual(got, []string{"2", "4"}) {
		t.Errorf("Search() = %v", got)
	}
}

func TestFind(t *testing.T) {
	s := queryFixture(t)

	if got, err := pv.Find(s, "3"); err != nil || got.Title != "Commit message" {
		t.Errorf("Find(id) = %+v, %v", got, err)
	}
	if got, err := pv.Find(s, "Code Review"); err != nil || got.ID != "1" {
		t.Errorf("Find(title) = %+v, %v", got, err)
	}
	if _, err := pv.Find(s, "Summarize"); err == nil {
		t.Error("Find(ambiguous title) expected error")
	}
	if _, err := pv.Find(s, "missing"); !errors.Is(err, pv.ErrNotFound) {
		t.Errorf("Find(missing) error = %v, want ErrNotFound", err)
	}
}

func TestTagsAndCategories(t *testing.T) {
	s := queryFixture(t)
	if got := pv.AllTags(s); !reflect.DeepEqual(got, []string{"code", "git", "review", "writing"}) {
		t.Errorf("AllTags() = %v", got)
	}
	if got := pv.Categories(s); !reflect.DeepEqual(got, []string{"dev", "text"}) {
		t.Errorf("Categories() = %v", got)
	}
}

func TestComputeStats(t *testing.T) {
	s := queryFixture(t)
	st := pv.ComputeStats(s)

	if st.TotalPrompts != 4 || st.TotalTags != 4 || st.TotalCategories != 2 || st.Tombstones != 0 {
		t.Errorf("ComputeStats() = %+v", st)
	}
	want := []pv.CountEntry{{Name: "code", Count: 2}, {Name: "git", Count: 1}, {Name: "review", Count: 1}, {Name: "writing", Count: 1}}
	if got := pv.Ranked(st.TagCounts); !reflect.DeepEqual(got, want) {
		t.Errorf("Ranked(tags) = %v, want %v", got, want)
	}
}

func TestSortPrompts(t *testing.T) {
	tests := []struct {
		by   pv.SortBy
		want []string
	}{
		{pv.SortRecency, []string{"3", "4", "2", "1"}},
		{pv.SortTitle, []string{"1", "3", "2", "4"}},
		{pv.SortUpdated, []string{"1", "3", "4", "2"}},
	}
	for _, tt := range tests {
		prompts := queryFixture(t).Prompts()
		pv.SortPrompts(prompts, tt.by)
		if got := ids(prompts); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SortPrompts(%s) = %v, want %v", tt.by, got, tt.want)
		}
	}

	if by, err := pv.ParseSortBy(""); err != nil || by != pv.SortRecency {
		t.Errorf("ParseSortBy(\"\") = %v, %v", by, err)
	}
	if _, err := pv.ParseSortBy("size"); err == nil {
		t.Error("ParseSortBy(size) expected error")
	}
}

func TestVariables(t *testing.T) {
	tests := []struct {
		content string
		want    []string
	}{
		{"Review {{diff}} for {{lang}}", []string{"diff", "lang"}},
		{"Summarize {{ text }} in {{lang}}, {{text}} again", []string{"text", "lang"}},
		{"no placeholders {here}", nil},
		{"{{a.b}} {{x-y}}", []string{"a.b", "x-y"}},
	}
	for _, tt := range tests {
		if got := pv.Variables(tt.content); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Variables(%q) = %v, want %v", tt.content, got, tt.want)
		}
	}
}
