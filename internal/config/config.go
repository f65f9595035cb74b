/*
Package config handles loading and saving devtools-hub configuration.

Configuration is stored in ~/.devtools-hub.json. Environment variables with
the DEVTOOLS_ prefix override file values.

Schema:

	{
	  "storage": {
	    "path": "~/.devtools-hub/store.db",
	    "quotaPages": 0
	  },
	  "history": {
	    "retentionCap": 50,
	    "listLimit": 20
	  },
	  "server": {
	    "addr": "127.0.0.1:8723"
	  },
	  "log": {
	    "level": "info",
	    "format": "console"
	  }
	}
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	// DefaultRetentionCap is the number of history entries kept per tool.
	DefaultRetentionCap = 50

	// DefaultListLimit is the number of history entries listed by default.
	DefaultListLimit = 20

	// DefaultAddr is the listen address of the local HTTP API.
	DefaultAddr = "127.0.0.1:8723"
)

// Config represents the root configuration structure.
type Config struct {
	Storage StorageConfig `json:"storage"`
	History HistoryConfig `json:"history"`
	Server  ServerConfig  `json:"server"`
	Log     LogConfig     `json:"log"`
}

// StorageConfig configures the local record store.
type StorageConfig struct {
	// Path is the database file. Empty means ~/.devtools-hub/store.db.
	Path string `json:"path,omitempty" env:"DEVTOOLS_DB_PATH"`

	// QuotaPages caps the database size in pages. Zero means no cap.
	QuotaPages int `json:"quotaPages,omitempty" env:"DEVTOOLS_QUOTA_PAGES"`
}

// HistoryConfig configures the history service.
type HistoryConfig struct {
	// RetentionCap is the number of entries kept per tool.
	RetentionCap int `json:"retentionCap" env:"DEVTOOLS_HISTORY_CAP"`

	// ListLimit is the default number of entries returned by list operations.
	ListLimit int `json:"listLimit" env:"DEVTOOLS_LIST_LIMIT"`
}

// ServerConfig configures the local HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" env:"DEVTOOLS_ADDR"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is a zerolog level name.
	Level string `json:"level" env:"DEVTOOLS_LOG_LEVEL"`

	// Format is "console" or "json".
	Format string `json:"format" env:"DEVTOOLS_LOG_FORMAT"`
}

// NewConfig creates a configuration with default values.
func NewConfig() *Config {
	return &Config{
		History: HistoryConfig{
			RetentionCap: DefaultRetentionCap,
			ListLimit:    DefaultListLimit,
		},
		Server: ServerConfig{Addr: DefaultAddr},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// GetDefaultConfigPath returns the path to ~/.devtools-hub.json
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".devtools-hub.json"), nil
}

// Load reads the configuration from path, or from the default path when path
// is empty. A missing file yields the defaults. Environment overrides are
// applied and the result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = GetDefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := LoadFrom(path)
	var notFound *ConfigNotFoundError
	if errors.As(err, &notFound) {
		cfg, err = NewConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields with the DEVTOOLS_* environment variables that
// are set. Unset variables leave the current values untouched.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return &InvalidConfigError{
			Path:    "environment",
			Message: err.Error(),
			Hint:    "Check DEVTOOLS_* environment variables",
		}
	}
	return nil
}

// StoragePath returns the database path with a leading ~ expanded. An empty
// path is returned as is.
func (c *Config) StoragePath() (string, error) {
	return expandHome(c.Storage.Path)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
