// Package streamed wraps a storage.Driver so every successful Add emits a
// trajectory-added event.
package streamed

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/papercomputeco/replay/pkg/eventstream"
	"github.com/papercomputeco/replay/pkg/eventstream/worker"
	"github.com/papercomputeco/replay/pkg/logger"
	"github.com/papercomputeco/replay/pkg/storage"
	"github.com/papercomputeco/replay/pkg/trajectory"
)

// Driver decorates a storage.Driver with event publishing. Events are
// delivered by a worker pool; publish failures are logged and never fail Add.
type Driver struct {
	inner     storage.Driver
	publisher eventstream.Publisher
	pool      *worker.Pool
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewDriver wraps inner. The returned driver owns pub and closes it on Close.
func NewDriver(inner storage.Driver, pub eventstream.Publisher, l *slog.Logger) (*Driver, error) {
	if l == nil {
		l = logger.Nop()
	}

	pool, err := worker.NewPool(&worker.Config{
		Publisher: pub,
		Logger:    l,
	})
	if err != nil {
		return nil, err
	}

	return &Driver{
		inner:     inner,
		publisher: pub,
		pool:      pool,
		logger:    l,
	}, nil
}

// Add stores t in the wrapped driver and queues its event on success.
//
// A snapshotting driver keeps the append in memory when only the snapshot
// write fails, so the event is still queued and the *storage.PersistenceError
// is returned. Add after Close returns storage.ErrClosed.
func (d *Driver) Add(ctx context.Context, t *trajectory.Trajectory) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return storage.ErrClosed
	}

	err := d.inner.Add(ctx, t)
	if err != nil && !d.appendKept(err) {
		return err
	}

	d.pool.Enqueue(eventstream.NewTrajectoryAddedEvent(t))
	return err
}

// appendKept reports whether err from the wrapped Add still left the
// trajectory in the store.
func (d *Driver) appendKept(err error) bool {
	if _, ok := d.inner.(storage.Snapshotter); !ok {
		return false
	}

	var persistErr *storage.PersistenceError
	return errors.As(err, &persistErr)
}

// Fetch reads from the wrapped driver.
func (d *Driver) Fetch(ctx context.Context, tags []string, page, pageSize int) ([]*trajectory.Trajectory, error) {
	return d.inner.Fetch(ctx, tags, page, pageSize)
}

// Stats reads from the wrapped driver.
func (d *Driver) Stats(ctx context.Context) (storage.Stats, error) {
	return d.inner.Stats(ctx)
}

// Keys forwards to the wrapped driver when it is a storage.KeyLister.
func (d *Driver) Keys(ctx context.Context) ([]trajectory.TagKey, error) {
	kl, ok := d.inner.(storage.KeyLister)
	if !ok {
		return nil, storage.ErrKeysUnsupported
	}
	return kl.Keys(ctx)
}

// SaveToDisk forwards to the wrapped driver when it is a storage.Snapshotter.
func (d *Driver) SaveToDisk(ctx context.Context) error {
	s, ok := d.inner.(storage.Snapshotter)
	if !ok {
		return storage.ErrSnapshotUnsupported
	}
	return s.SaveToDisk(ctx)
}

// LoadFromDisk forwards to the wrapped driver when it is a storage.Snapshotter.
func (d *Driver) LoadFromDisk(ctx context.Context) error {
	s, ok := d.inner.(storage.Snapshotter)
	if !ok {
		return storage.ErrSnapshotUnsupported
	}
	return s.LoadFromDisk(ctx)
}

// Unwrap returns the wrapped driver.
func (d *Driver) Unwrap() storage.Driver {
	return d.inner
}

// Close drains queued events, then closes the publisher and the wrapped driver.
// Calls after the first are no-ops.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	d.pool.Close()
	return errors.Join(d.publisher.Close(), d.inner.Close())
}

var _ storage.Driver = (*Driver)(nil)
