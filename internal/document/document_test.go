package document

import (
	"errors"
	"strings"
	"testing"
	"time"

	"pv-go/internal/pv"
)

func testSnapshot(t *testing.T) *pv.Snapshot {
	t.Helper()
	created := time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)
	snap, err := pv.NewSnapshot([]pv.Prompt{
		{
			ID:          "b-2",
			Title:       "Review",
			Description: "code review helper",
			Content:     "Review {{lang}} code:\n\n{{code}}",
			Tags:        []string{"review", "code"},
			Category:    "dev",
			CreatedAt:   created,
			UpdatedAt:   created.Add(time.Hour),
		},
		{
			ID:        "a-1",
			Title:     "Summarize",
			Content:   "Summarize \"this\" = 'that'",
			CreatedAt: created,
			UpdatedAt: created,
		},
	}, []pv.Tombstone{
		{ID: "c-3", DeletedAt: created.Add(2 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return snap
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	snap := testSnapshot(t)

	data, err := Encode(snap)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !got.Equal(snap) {
		t.Errorf("Decode(Encode(snap)) is not equal to snap")
	}

	again, err := Encode(got)
	if err != nil {
		t.Fatalf("second Encode() error = %v", err)
	}
	if string(again) != string(data) {
		t.Errorf("encoding is not stable:\nfirst:\n%s\nsecond:\n%s", data, again)
	}
}

func TestEncode_Layout(t *testing.T) {
	data, err := Encode(testSnapshot(t))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	text := string(data)

	if !strings.HasPrefix(text, "schema_version = 1") {
		t.Errorf("document should start with schema_version, got:\n%s", text)
	}
	if strings.Index(text, `id = "a-1"`) > strings.Index(text, `id = "b-2"`) {
		t.Error("prompts are not ordered by id")
	}
	if !strings.Contains(text, "2024-01-15T10:30:00.123456789Z") {
		t.Errorf("nanosecond timestamp missing from:\n%s", text)
	}
	if !strings.Contains(text, "[[tombstones]]") {
		t.Errorf("tombstones missing from:\n%s", text)
	}
}

func TestDecode_Empty(t *testing.T) {
	for _, input := range []string{"", "  \n\t"} {
		snap, err := Decode([]byte(input))
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", input, err)
		}
		if snap.Len() != 0 {
			t.Errorf("Decode(%q) has %d prompts, want 0", input, snap.Len())
		}
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "not toml",
			input: "this is [not toml",
		},
		{
			name:  "missing schema version",
			input: "[[prompts]]\nid = \"a\"\ntitle = \"t\"\ncontent = \"c\"\ncreated_at = \"2024-01-15T10:30:00Z\"\nupdated_at = \"2024-01-15T10:30:00Z\"\n",
		},
		{
			name:  "future schema version",
			input: "schema_version = 2\n",
		},
		{
			name:  "duplicate id",
			input: "schema_version = 1\n" + promptTOML("a", "2024-01-15T10:30:00Z") + promptTOML("a", "2024-01-15T10:30:00Z"),
		},
		{
			name:  "empty id",
			input: "schema_version = 1\n" + promptTOML("", "2024-01-15T10:30:00Z"),
		},
		{
			name:  "bad timestamp",
			input: "schema_version = 1\n" + promptTOML("a", "yesterday"),
		},
		{
			name:  "live and tombstoned",
			input: "schema_version = 1\n" + promptTOML("a", "2024-01-15T10:30:00Z") + "[[tombstones]]\nid = \"a\"\ndeleted_at = \"2024-01-15T11:30:00Z\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Decode() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func promptTOML(id, updated string) string {
	return "[[prompts]]\n" +
		"id = \"" + id + "\"\n" +
		"title = \"t\"\n" +
		"content = \"c\"\n" +
		"created_at = \"2024-01-15T10:30:00Z\"\n" +
		"updated_at = \"" + updated + "\"\n"
}
