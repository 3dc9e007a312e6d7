// Package backend opens the storage driver and event publisher selected by
// the replay configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/papercomputeco/replay/pkg/config"
	"github.com/papercomputeco/replay/pkg/eventstream"
	"github.com/papercomputeco/replay/pkg/eventstream/kafka"
	"github.com/papercomputeco/replay/pkg/eventstream/nop"
	"github.com/papercomputeco/replay/pkg/logger"
	"github.com/papercomputeco/replay/pkg/storage"
	"github.com/papercomputeco/replay/pkg/storage/inmemory"
	"github.com/papercomputeco/replay/pkg/storage/postgres"
	"github.com/papercomputeco/replay/pkg/storage/sqlite"
	"github.com/papercomputeco/replay/pkg/storage/streamed"
)

const (
	// SnapshotFile is the default snapshot file name inside the .replay/ directory.
	SnapshotFile = "trajectories.snap"

	// SQLiteFile is the default SQLite database name inside the .replay/ directory.
	SQLiteFile = "replay.sqlite"
)

// Open creates the driver for cfg.Storage wrapped with the publisher for
// cfg.EventStream. dir is the resolved .replay/ directory used for default
// file locations; when it is empty the memory backend runs without a
// snapshot and SQLite runs in memory.
func Open(ctx context.Context, cfg *config.Config, dir string, l *slog.Logger) (*streamed.Driver, error) {
	if l == nil {
		l = logger.Nop()
	}

	inner, err := NewDriver(ctx, cfg.Storage, dir, l)
	if err != nil {
		return nil, err
	}

	pub, err := NewPublisher(cfg.EventStream)
	if err != nil {
		inner.Close()
		return nil, err
	}

	d, err := streamed.NewDriver(inner, pub, l)
	if err != nil {
		pub.Close()
		inner.Close()
		return nil, err
	}

	return d, nil
}

// NewDriver creates the storage driver for c.
func NewDriver(ctx context.Context, c config.StorageConfig, dir string, l *slog.Logger) (storage.Driver, error) {
	switch c.Backend {
	case config.BackendMemory, "":
		path := c.SnapshotPath
		if path == "" && dir != "" {
			path = filepath.Join(dir, SnapshotFile)
		}

		opts := []inmemory.Option{inmemory.WithLogger(l)}
		if path != "" {
			opts = append(opts, inmemory.WithSnapshotPath(path))
			l.Info("using in-memory storage", "snapshot", path)
		} else {
			l.Warn("using in-memory storage without a snapshot; trajectories will not persist")
		}

		driver, err := inmemory.NewDriver(opts...)
		if err != nil {
			return nil, err
		}
		return driver, nil

	case config.BackendSQLite:
		path := c.SQLitePath
		switch {
		case path != "":
		case dir != "":
			path = filepath.Join(dir, SQLiteFile)
		default:
			path = ":memory:"
		}

		driver, err := sqlite.NewSQLiteDriver(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		l.Info("using SQLite storage", "path", path)
		return driver, nil

	case config.BackendPostgres:
		if c.PostgresDSN == "" {
			return nil, fmt.Errorf("storage.postgres_dsn is required for the %s backend", config.BackendPostgres)
		}

		driver, err := postgres.NewDriver(ctx, c.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		l.Info("using PostgreSQL storage")
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %q", c.Backend)
	}
}

// NewPublisher creates the event publisher for c.
func NewPublisher(c config.EventStreamConfig) (eventstream.Publisher, error) {
	switch c.Provider {
	case config.EventStreamNone, "":
		return nop.NewPublisher(), nil

	case config.EventStreamKafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers: config.SplitBrokers(c.Brokers),
			Topic:   c.Topic,
		})

	default:
		return nil, fmt.Errorf("unknown event stream provider: %q", c.Provider)
	}
}
