package store

import (
	"path/filepath"
	"testing"

	"pv-go/internal/config"
)

func TestNewStoreFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StoreConfig
		want    string
		wantErr bool
	}{
		{name: "file", cfg: config.StoreConfig{Type: "file", Path: filepath.Join(t.TempDir(), "p.toml")}, want: "*store.FileStore"},
		{name: "default type is file", cfg: config.StoreConfig{Path: "/tmp/p.toml"}, want: "*store.FileStore"},
		{name: "file without path", cfg: config.StoreConfig{Type: "file"}, wantErr: true},
		{name: "memory", cfg: config.StoreConfig{Type: "memory"}, want: "*store.MemoryStore"},
		{name: "unknown", cfg: config.StoreConfig{Type: "redis"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStoreFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStoreFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			switch tt.want {
			case "*store.FileStore":
				if _, ok := s.(*FileStore); !ok {
					t.Errorf("NewStoreFromConfig() = %T, want %s", s, tt.want)
				}
			case "*store.MemoryStore":
				if _, ok := s.(*MemoryStore); !ok {
					t.Errorf("NewStoreFromConfig() = %T, want %s", s, tt.want)
				}
			}
		})
	}
}
