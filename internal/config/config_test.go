package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir:  "/home/user/.local/share/pv",
		LogDir:   "/home/user/.local/share/pv/log",
		LogLevel: "debug",
		Store:    StoreConfig{Type: "file", Path: "/home/user/.local/share/pv/prompts.toml"},
		Remote: RemoteConfig{
			Type:         "gist",
			GistID:       "abc123",
			GistFileName: "prompts.toml",
		},
		Sync: SyncConfig{DefaultMode: "upload-only", AutoSync: true, TombstoneRetentionDays: 30},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/home/user/.local/share/pv/keys/pv.pub",
			PrivateKeyPath: "/home/user/.local/share/pv/keys/pv.key",
		},
		History: HistoryConfig{Type: "sqlite", Path: "/home/user/.local/share/pv/history.db"},
		Query:   QueryConfig{CaseSensitive: true, SortBy: "title"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", got.LogLevel, "debug")
	}
	if got.Store != original.Store {
		t.Errorf("Store = %+v, want %+v", got.Store, original.Store)
	}
	if got.Remote.Type != "gist" || got.Remote.GistID != "abc123" {
		t.Errorf("Remote = %+v, want gist abc123", got.Remote)
	}
	if got.Remote.S3Bucket != "" {
		t.Errorf("Remote.S3Bucket = %q, want empty", got.Remote.S3Bucket)
	}
	if got.Sync != original.Sync {
		t.Errorf("Sync = %+v, want %+v", got.Sync, original.Sync)
	}
	if got.Encryption != original.Encryption {
		t.Errorf("Encryption = %+v, want %+v", got.Encryption, original.Encryption)
	}
	if got.History != original.History {
		t.Errorf("History = %+v, want %+v", got.History, original.History)
	}
	if got.Query != original.Query {
		t.Errorf("Query = %+v, want %+v", got.Query, original.Query)
	}
}

func TestManager_Read_Invalid(t *testing.T) {
	m := &Manager{}
	if _, err := m.Read(bytes.NewBufferString("base_dir = [")); err == nil {
		t.Fatal("Read() expected error for invalid toml")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/pv")

	if cfg.BaseDir != "/data/pv" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/pv")
	}
	if cfg.LogDir != "/data/pv/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/pv/log")
	}
	if cfg.Store.Type != "file" || cfg.Store.Path != "/data/pv/prompts.toml" {
		t.Errorf("Store = %+v, want file at /data/pv/prompts.toml", cfg.Store)
	}
	if cfg.Remote.Type != "" {
		t.Errorf("Remote.Type = %q, want no remote", cfg.Remote.Type)
	}
	if cfg.Sync.DefaultMode != "two-way" {
		t.Errorf("Sync.DefaultMode = %q, want %q", cfg.Sync.DefaultMode, "two-way")
	}
	if cfg.Encryption.Type != "none" {
		t.Errorf("Encryption.Type = %q, want %q", cfg.Encryption.Type, "none")
	}
	if cfg.Encryption.PublicKeyPath != "/data/pv/keys/pv.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", cfg.Encryption.PublicKeyPath, "/data/pv/keys/pv.pub")
	}
	if cfg.History.Path != "/data/pv/history.db" {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, "/data/pv/history.db")
	}
}

func TestSyncConfig_TombstoneRetention(t *testing.T) {
	tests := []struct {
		days int
		want time.Duration
	}{
		{days: 0, want: 0},
		{days: -5, want: 0},
		{days: 1, want: 24 * time.Hour},
		{days: 90, want: 90 * 24 * time.Hour},
	}

	for _, tt := range tests {
		got := SyncConfig{TombstoneRetentionDays: tt.days}.TombstoneRetention()
		if got != tt.want {
			t.Errorf("TombstoneRetention(%d days) = %v, want %v", tt.days, got, tt.want)
		}
	}
}

func TestRemoteConfig_Timeout(t *testing.T) {
	if got := (RemoteConfig{}).Timeout(); got != 30*time.Second {
		t.Errorf("default Timeout() = %v, want 30s", got)
	}
	if got := (RemoteConfig{TimeoutSeconds: 5}).Timeout(); got != 5*time.Second {
		t.Errorf("Timeout() = %v, want 5s", got)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "pv.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "pv.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "pv.toml")
		cfg := NewConfig(dir)
		cfg.Remote = RemoteConfig{Type: "filesystem", FSPath: filepath.Join(dir, "remote")}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Remote.FSPath != cfg.Remote.FSPath {
			t.Errorf("Remote.FSPath = %q, want %q", got.Remote.FSPath, cfg.Remote.FSPath)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/pv.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pv.toml")
	cfg := NewConfig(dir)
	cfg.Remote = RemoteConfig{Type: "gist"}

	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	cfg.Remote.GistID = "abc123"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.Remote.GistID != "abc123" {
		t.Errorf("Remote.GistID = %q, want %q", got.Remote.GistID, "abc123")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("mode = %o, want 600", perm)
	}
}
