package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"pv-go/internal/document"
	"pv-go/internal/pv"
)

func sampleLibrary(t *testing.T) *pv.Snapshot {
	t.Helper()
	ts := time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)
	snap, err := pv.NewSnapshot(
		[]pv.Prompt{
			{ID: "b", Title: "Review", Description: "Review code", Content: "Review this:\n```go\n{{code}}\n```", Tags: []string{"dev", "go"}, Category: "coding", CreatedAt: ts, UpdatedAt: ts.Add(time.Hour)},
			{ID: "a", Title: "Answer <briefly>", Content: "Answer {{question}} & stop", CreatedAt: ts, UpdatedAt: ts},
		},
		[]pv.Tombstone{{ID: "gone", DeletedAt: ts}},
	)
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return snap
}

func TestExportImport_RoundTrip(t *testing.T) {
	for _, f := range []Format{FormatTOML, FormatJSON, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			snap := sampleLibrary(t)
			var buf bytes.Buffer
			if err := Export(&buf, snap, f); err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			got, err := Import(&buf, f)
			if err != nil {
				t.Fatalf("Import() error = %v", err)
			}
			if !got.Equal(snap) {
				t.Errorf("Import(Export()) ids = %v, want %v", got.AllIDs(), snap.AllIDs())
			}
		})
	}
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		f     Format
	}{
		{name: "bad json", input: "{", f: FormatJSON},
		{name: "bad yaml", input: "prompts: [", f: FormatYAML},
		{name: "missing schema version", input: `{"prompts": []}`, f: FormatJSON},
		{name: "duplicate id", input: "schema_version: 1\nprompts:\n  - {id: x, title: a, content: c, created_at: \"2024-01-15T10:30:00Z\", updated_at: \"2024-01-15T10:30:00Z\"}\n  - {id: x, title: b, content: c, created_at: \"2024-01-15T10:30:00Z\", updated_at: \"2024-01-15T10:30:00Z\"}\n", f: FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import(strings.NewReader(tt.input), tt.f)
			if !errors.Is(err, document.ErrMalformed) {
				t.Errorf("Import() error = %v, want ErrMalformed", err)
			}
		})
	}

	if _, err := Import(strings.NewReader("# hi"), FormatMarkdown); err == nil {
		t.Error("Import(markdown) expected error")
	}
	snap, err := Import(strings.NewReader("  \n"), FormatJSON)
	if err != nil || snap.Len() != 0 {
		t.Errorf("Import(empty) = %v, %v, want empty snapshot", snap, err)
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleLibrary(t))

	for _, want := range []string{
		"# Prompt Library",
		"2 prompts.",
		"## Review",
		"- **Tags:** `dev`, `go`",
		"- **Category:** coding",
		"- **Variables:** `code`",
		"````\nReview this:",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown() missing %q\n%s", want, md)
		}
	}
	if strings.Contains(md, "gone") {
		t.Error("Markdown() rendered a tombstone")
	}
	if strings.Index(md, "## Answer") > strings.Index(md, "## Review") {
		t.Error("Markdown() not sorted by title")
	}
}

func TestExport_HTML(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, sampleLibrary(t), FormatHTML); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{"<!DOCTYPE html>", "<h2>Review</h2>", "<li><strong>Category:</strong> coding</li>", "Answer {{question}} &amp; stop"} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML export missing %q", want)
		}
	}
	if strings.Contains(out, "<briefly>") {
		t.Error("HTML export did not escape a title")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"toml", FormatTOML, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"md", FormatMarkdown, false},
		{"htm", FormatHTML, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if f, err := FormatFromPath("backup/library.yaml"); err != nil || f != FormatYAML {
		t.Errorf("FormatFromPath() = %q, %v", f, err)
	}
	if _, err := FormatFromPath("library"); err == nil {
		t.Error("FormatFromPath(no extension) expected error")
	}
}
