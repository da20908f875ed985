package app

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// ConfigPathEnv points at the config file.
	ConfigPathEnv = "PV_CONFIG_PATH"
	// HomeEnv is the data directory holding the library, keys, history and logs.
	HomeEnv = "PV_HOME"
)

// Paths is where pv keeps its files before a config exists. `pv config init`
// seeds the config from DataDir; later runs only need ConfigFile.
type Paths struct {
	ConfigFile string
	DataDir    string
}

// DefaultPaths resolves Paths from $PV_CONFIG_PATH and $PV_HOME, falling
// back to ~/.config/pv.toml and ~/.local/share/pv.
func DefaultPaths() (Paths, error) {
	configFile, err := envOrHome(ConfigPathEnv, ".config", "pv.toml")
	if err != nil {
		return Paths{}, err
	}
	dataDir, err := envOrHome(HomeEnv, ".local", "share", "pv")
	if err != nil {
		return Paths{}, err
	}
	return Paths{ConfigFile: configFile, DataDir: dataDir}, nil
}

func envOrHome(env string, rel ...string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory (set %s): %w", env, err)
	}
	return filepath.Join(append([]string{home}, rel...)...), nil
}
