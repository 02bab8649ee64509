package orggraph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the orggraph engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.orggraph/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "orggraph". The file will be <DBName>.db inside the
	// storage directory (~/.orggraph/ or working dir).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.orggraph/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// Driver selects the SQLite driver: "sqlite3" (cgo) or "sqlite"
	// (pure Go). Empty picks the cgo driver when the binary was built with cgo.
	Driver string `json:"driver" yaml:"driver"`

	// PageSize is the number of relations per page.
	PageSize int `json:"page_size" yaml:"page_size"`

	// RejectCycles skips ingested edges whose daughter already reaches the parent.
	RejectCycles bool `json:"reject_cycles" yaml:"reject_cycles"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level"`

	// MaxImportBytes caps uploaded hierarchy files.
	MaxImportBytes int64 `json:"max_import_bytes" yaml:"max_import_bytes"`
}

// DefaultConfig returns a Config with sensible defaults.
// Database is stored in ~/.orggraph/orggraph.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:         "orggraph",
		StorageDir:     "home",
		PageSize:       100,
		RejectCycles:   true,
		LogLevel:       "info",
		MaxImportBytes: 10 << 20,
	}
}

// LoadConfig reads a config file over DefaultConfig. Files ending in .yaml
// or .yml are decoded as YAML, everything else as JSON.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports configuration values the engine cannot run with.
func (c *Config) Validate() error {
	if c.PageSize < 1 {
		return fmt.Errorf("%w: page_size must be positive, got %d", ErrInvalidConfig, c.PageSize)
	}
	switch c.Driver {
	case "", "sqlite3", "sqlite":
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, c.Driver)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.MaxImportBytes < 0 {
		return fmt.Errorf("%w: max_import_bytes must not be negative", ErrInvalidConfig)
	}
	return nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "orggraph"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		dir := filepath.Join(home, ".orggraph")
		return filepath.Join(dir, name+".db")
	}
}
