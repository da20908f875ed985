package store

import (
	"fmt"

	"pv-go/internal/config"
	"pv-go/internal/pv"
)

// NewStoreFromConfig creates a LocalStore implementation based on the store config type.
func NewStoreFromConfig(cfg config.StoreConfig) (pv.LocalStore, error) {
	switch cfg.Type {
	case "file", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("file store requires path to be set")
		}
		return NewFileStore(cfg.Path), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
