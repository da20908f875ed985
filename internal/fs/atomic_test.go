package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a", "b", "lib.toml")

		if err := WriteFileAtomic(path, []byte("hello"), 0o600); err != nil {
			t.Fatalf("WriteFileAtomic() error = %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if string(data) != "hello" {
			t.Errorf("content = %q, want %q", data, "hello")
		}
	})

	t.Run("replaces existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lib.toml")
		if err := os.WriteFile(path, []byte("old content"), 0o600); err != nil {
			t.Fatal(err)
		}

		if err := WriteFileAtomic(path, []byte("new"), 0o600); err != nil {
			t.Fatalf("WriteFileAtomic() error = %v", err)
		}

		data, _ := os.ReadFile(path)
		if string(data) != "new" {
			t.Errorf("content = %q, want %q", data, "new")
		}
	})

	t.Run("leaves no temp files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "lib.toml")
		for range 3 {
			if err := WriteFileAtomic(path, []byte("x"), 0o600); err != nil {
				t.Fatalf("WriteFileAtomic() error = %v", err)
			}
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("directory has %d entries, want 1", len(entries))
		}
	})

	t.Run("applies permissions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lib.toml")
		if err := WriteFileAtomic(path, []byte("x"), 0o600); err != nil {
			t.Fatalf("WriteFileAtomic() error = %v", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("mode = %v, want 0600", info.Mode().Perm())
		}
	})
}

func TestReadFileIfExists(t *testing.T) {
	dir := t.TempDir()

	_, ok, err := ReadFileIfExists(filepath.Join(dir, "missing"))
	if err != nil || ok {
		t.Errorf("ReadFileIfExists(missing) = ok %v, err %v; want false, nil", ok, err)
	}

	path := filepath.Join(dir, "present")
	os.WriteFile(path, []byte("data"), 0o600)
	data, ok, err := ReadFileIfExists(path)
	if err != nil || !ok || string(data) != "data" {
		t.Errorf("ReadFileIfExists(present) = %q, %v, %v", data, ok, err)
	}
}
