package config

import "strings"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Event stream providers.
const (
	EventStreamNone  = "none"
	EventStreamKafka = "kafka"
)

const (
	defaultBackend   = BackendMemory
	defaultAPIListen = ":8081"
	defaultPageSize  = 20

	defaultEventStreamProvider = EventStreamNone
	defaultEventStreamTopic    = "replay.trajectories"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Backend: defaultBackend,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Fetch: FetchConfig{
			PageSize: defaultPageSize,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}

// IsValidBackend reports whether name is a known storage backend.
func IsValidBackend(name string) bool {
	switch name {
	case BackendMemory, BackendSQLite, BackendPostgres:
		return true
	}
	return false
}

func backendList() string {
	return strings.Join([]string{BackendMemory, BackendSQLite, BackendPostgres}, ", ")
}
