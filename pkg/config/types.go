package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent jot configuration stored as config.toml
// in the .jot/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Storage StorageConfig `toml:"storage"`
	API     APIConfig     `toml:"api"`
	Uploads UploadsConfig `toml:"uploads"`
	Events  EventsConfig  `toml:"events"`
}

// StorageConfig selects and configures the note storage backend.
type StorageConfig struct {
	// Backend is one of "memory", "sqlite", or "postgres".
	Backend     string `toml:"backend,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// UploadsConfig holds attachment storage settings.
type UploadsConfig struct {
	// Dir is the attachment blob directory. Empty means the uploads/
	// directory inside the resolved .jot/ directory.
	Dir string `toml:"dir,omitempty"`

	// MaxSizeMB is the attachment size ceiling in MiB.
	MaxSizeMB uint `toml:"max_size_mb,omitempty"`
}

// EventsConfig holds note event publishing settings. With no brokers
// configured, events are discarded.
type EventsConfig struct {
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.backend": {
		get: func(c *Config) string { return c.Storage.Backend },
		set: func(c *Config, v string) error {
			switch v {
			case "memory", "sqlite", "postgres":
				c.Storage.Backend = v
				return nil
			default:
				return fmt.Errorf("invalid value for storage.backend: %q (available: memory, sqlite, postgres)", v)
			}
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"uploads.dir": {
		get: func(c *Config) string { return c.Uploads.Dir },
		set: func(c *Config, v string) error { c.Uploads.Dir = v; return nil },
	},
	"uploads.max_size_mb": {
		get: func(c *Config) string {
			if c.Uploads.MaxSizeMB == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Uploads.MaxSizeMB), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for uploads.max_size_mb: %w", err)
			}
			c.Uploads.MaxSizeMB = uint(n)
			return nil
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Events.Brokers = SplitBrokers(v)
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

// SplitBrokers parses a comma-separated broker list, dropping empty entries.
func SplitBrokers(v string) []string {
	parts := strings.Split(v, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
