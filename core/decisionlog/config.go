package decisionlog

import (
	"fmt"
	"strings"

	"github.com/kilianp07/coldchain/core/model"
)

// Backends.
const (
	BackendMemory = "memory"
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Config selects and sizes the backend.
type Config struct {
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// Rotation applies to the jsonl backend; MaxSizeMB zero disables it.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
	// Capacity bounds the memory backend.
	Capacity int `json:"capacity"`
}

// SetDefaults picks the memory backend when nothing is configured.
func (c *Config) SetDefaults() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.Capacity == 0 {
		c.Capacity = 1000
	}
	if c.Path == "" {
		switch c.Backend {
		case BackendJSONL:
			c.Path = "data/decisions.jsonl"
		case BackendSQLite:
			c.Path = "data/decisions.db"
		}
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendJSONL, BackendSQLite:
	default:
		return fmt.Errorf("%w: unknown decision log backend %q", model.ErrConfiguration, c.Backend)
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("%w: decision log rotation settings must not be negative", model.ErrConfiguration)
	}
	return nil
}

// Open builds the configured store.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendJSONL:
		if cfg.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return NewJSONLStore(cfg.Path)
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		return NewMemoryStore(cfg.Capacity)
	}
}
