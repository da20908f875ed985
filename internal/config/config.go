package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for pv.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level,omitempty"` // "debug", "info" (default), "warn" or "error"
	Store      StoreConfig      `toml:"store"`
	Remote     RemoteConfig     `toml:"remote"`
	Sync       SyncConfig       `toml:"sync"`
	Encryption EncryptionConfig `toml:"encryption"`
	History    HistoryConfig    `toml:"history"`
	Query      QueryConfig      `toml:"query"`
}

// StoreConfig selects the local record store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type string `toml:"type"`           // "file" or "memory"
	Path string `toml:"path,omitempty"` // only used for type=file
}

// RemoteConfig selects the remote mirror. An empty Type means no remote.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RemoteConfig struct {
	Type           string `toml:"type"` // "gist", "git", "s3", "gcs", "filesystem", "memory" or ""
	TimeoutSeconds int    `toml:"timeout_seconds,omitempty"`

	// Gist-specific fields. An empty GistID creates a new gist on first push.
	GistID       string `toml:"gist_id,omitempty"`
	GistFileName string `toml:"gist_file_name,omitempty"`
	GistToken    string `toml:"gist_token,omitempty"`
	GistAPIURL   string `toml:"gist_api_url,omitempty"`
	GistPublic   bool   `toml:"gist_public,omitempty"`

	// Git-specific fields.
	GitURL      string `toml:"git_url,omitempty"`
	GitBranch   string `toml:"git_branch,omitempty"`
	GitPath     string `toml:"git_path,omitempty"`
	GitUsername string `toml:"git_username,omitempty"`
	GitToken    string `toml:"git_token,omitempty"`

	// S3-specific fields. Empty keys use the default AWS credential chain.
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Key             string `toml:"s3_key,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3PathStyle       bool   `toml:"s3_path_style,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// GCS-specific fields. An empty credentials file uses application default credentials.
	GCSBucket          string `toml:"gcs_bucket,omitempty"`
	GCSObject          string `toml:"gcs_object,omitempty"`
	GCSCredentialsFile string `toml:"gcs_credentials_file,omitempty"`
	GCSEndpoint        string `toml:"gcs_endpoint,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem").
	FSPath string `toml:"fs_path,omitempty"`
}

// Timeout returns the per-request timeout for remote calls.
func (c RemoteConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SyncConfig holds sync defaults.
type SyncConfig struct {
	DefaultMode            string `toml:"default_mode"` // "two-way" (default), "upload-only", ...
	AutoSync               bool   `toml:"auto_sync"`
	TombstoneRetentionDays int    `toml:"tombstone_retention_days"` // 0 keeps tombstones forever
}

// TombstoneRetention returns the retention window as a duration.
func (c SyncConfig) TombstoneRetention() time.Duration {
	if c.TombstoneRetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.TombstoneRetentionDays) * 24 * time.Hour
}

// EncryptionConfig holds paths to the age key pair used for the remote document.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// HistoryConfig selects where sync runs are recorded.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type HistoryConfig struct {
	Type string `toml:"type"`           // "sqlite", "memory" or "none"
	Path string `toml:"path,omitempty"` // only used for type=sqlite
}

// QueryConfig holds listing and search defaults.
type QueryConfig struct {
	CaseSensitive bool   `toml:"case_sensitive"`
	SortBy        string `toml:"sort_by"` // "recency" (default), "title" or "updated"
}

// NewConfig creates a new Config rooted at baseDir with default paths and
// no remote.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Store: StoreConfig{
			Type: "file",
			Path: filepath.Join(baseDir, "prompts.toml"),
		},
		Sync: SyncConfig{
			DefaultMode:            "two-way",
			TombstoneRetentionDays: 90,
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "pv.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "pv.key"),
		},
		History: HistoryConfig{
			Type: "sqlite",
			Path: filepath.Join(baseDir, "history.db"),
		},
		Query: QueryConfig{
			SortBy: "recency",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path. The file may hold
// tokens, so it is created owner-only.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Save overwrites the config file at path with cfg.
func Save(path string, cfg *Config) error {
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}
