package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent replay configuration stored as config.toml
// in the .replay/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	Fetch       FetchConfig       `toml:"fetch"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// StorageConfig selects and configures the trajectory storage backend.
type StorageConfig struct {
	// Backend is one of "memory", "sqlite" or "postgres".
	Backend string `toml:"backend,omitempty"`

	// SnapshotPath is the snapshot file of the memory backend. Empty means
	// trajectories.snap inside the resolved .replay/ directory.
	SnapshotPath string `toml:"snapshot_path,omitempty"`

	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// FetchConfig holds read-side defaults for the CLI and API.
type FetchConfig struct {
	PageSize uint `toml:"page_size,omitempty"`
}

// EventStreamConfig selects where trajectory-added events are published.
type EventStreamConfig struct {
	// Provider is "none" or "kafka".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of host:port addresses.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
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
			if !IsValidBackend(v) {
				return fmt.Errorf("invalid value for storage.backend: %q (available: %s)", v, backendList())
			}
			c.Storage.Backend = v
			return nil
		},
	},
	"storage.snapshot_path": {
		get: func(c *Config) string { return c.Storage.SnapshotPath },
		set: func(c *Config, v string) error { c.Storage.SnapshotPath = v; return nil },
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
	"fetch.page_size": {
		get: func(c *Config) string {
			if c.Fetch.PageSize == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Fetch.PageSize), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for fetch.page_size: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("invalid value for fetch.page_size: must be positive")
			}
			c.Fetch.PageSize = uint(n)
			return nil
		},
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error {
			if v != EventStreamNone && v != EventStreamKafka {
				return fmt.Errorf("invalid value for eventstream.provider: %q (available: %s, %s)", v, EventStreamNone, EventStreamKafka)
			}
			c.EventStream.Provider = v
			return nil
		},
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
}
