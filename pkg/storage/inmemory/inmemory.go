// Package inmemory provides the trajectory store kept entirely in memory,
// optionally mirrored to a single whole-index snapshot file.
package inmemory

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/papercomputeco/replay/pkg/logger"
	"github.com/papercomputeco/replay/pkg/storage"
	"github.com/papercomputeco/replay/pkg/storage/snapshot"
	"github.com/papercomputeco/replay/pkg/trajectory"
)

// Driver implements storage.Driver and storage.Snapshotter using an in-memory
// index from exact tag keys to append-only buckets.
//
// Concurrent calls are safe. Fetch copies its page under a read lock, so a
// trajectory added while another caller pages through the same bucket may or
// may not show up, and repeated calls for one page are not guaranteed stable
// while the bucket grows.
type Driver struct {
	// mu is a read write sync mutex for locking the index
	mu sync.RWMutex

	// fileMu serializes snapshot file I/O. It is always acquired after mu,
	// and taken before mu is released so snapshots land in mutation order.
	fileMu sync.Mutex

	// index maps the canonical form of a tag key to its bucket
	index map[string]*bucket

	snapshotPath string
	logger       *slog.Logger
}

type bucket struct {
	key          trajectory.TagKey
	trajectories []*trajectory.Trajectory
}

// Option configures a Driver created with NewDriver.
type Option func(*Driver)

// WithSnapshotPath enables persistence to the snapshot file at path.
func WithSnapshotPath(path string) Option {
	return func(d *Driver) {
		d.snapshotPath = path
	}
}

// WithLogger sets the logger used for snapshot activity.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDriver creates a new in-memory store. When a snapshot path is set and a
// non-empty file exists there, it seeds the index; a snapshot that cannot be
// decoded returns a *storage.ConfigurationError.
func NewDriver(opts ...Option) (*Driver, error) {
	d := &Driver{
		index:  make(map[string]*bucket),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.LoadFromDisk(context.Background()); err != nil {
		return nil, err
	}

	return d, nil
}

// Add appends a copy of t to the bucket for its tags. With a snapshot path
// configured, the whole index is written to disk before Add returns; if that
// write fails the append is kept in memory and a *storage.PersistenceError
// is returned, so memory and disk diverge until the next successful save.
func (d *Driver) Add(_ context.Context, t *trajectory.Trajectory) error {
	if err := storage.ValidateTrajectory(t); err != nil {
		return err
	}

	stored := t.Clone()
	key := stored.Key()

	d.mu.Lock()

	b, ok := d.index[key.String()]
	if !ok {
		b = &bucket{key: key}
		d.index[key.String()] = b
	}
	b.trajectories = append(b.trajectories, stored)

	if d.snapshotPath == "" {
		d.mu.Unlock()
		return nil
	}

	return d.saveAndUnlock()
}

// Fetch returns copies of the trajectories in the window
// [page*pageSize, (page+1)*pageSize) of the bucket for tags.
func (d *Driver) Fetch(_ context.Context, tags []string, page, pageSize int) ([]*trajectory.Trajectory, error) {
	if err := storage.ValidatePageSize(pageSize); err != nil {
		return nil, err
	}

	key := trajectory.TagKey(tags).String()

	d.mu.RLock()
	defer d.mu.RUnlock()

	b, ok := d.index[key]
	if !ok {
		return []*trajectory.Trajectory{}, nil
	}

	lo, hi := storage.PageBounds(len(b.trajectories), page, pageSize)
	result := make([]*trajectory.Trajectory, 0, hi-lo)
	for _, t := range b.trajectories[lo:hi] {
		result = append(result, t.Clone())
	}

	return result, nil
}

// SaveToDisk writes the full index to the snapshot path. It is a no-op when
// persistence is not configured.
func (d *Driver) SaveToDisk(_ context.Context) error {
	if d.snapshotPath == "" {
		return nil
	}

	d.mu.Lock()
	return d.saveAndUnlock()
}

// saveAndUnlock encodes the index, which requires mu held for writing, then
// releases mu and writes the snapshot while holding fileMu.
func (d *Driver) saveAndUnlock() error {
	data := snapshot.Encode(d.bucketsLocked())

	d.fileMu.Lock()
	d.mu.Unlock()
	defer d.fileMu.Unlock()

	if err := snapshot.WriteFile(d.snapshotPath, data); err != nil {
		d.logger.Error("failed to write snapshot",
			"path", d.snapshotPath,
			"error", err,
		)
		return err
	}

	d.logger.Debug("wrote snapshot",
		"path", d.snapshotPath,
		"bytes", len(data),
	)
	return nil
}

// LoadFromDisk replaces the index with the contents of the snapshot file. A
// missing or zero-length file leaves the index as is.
func (d *Driver) LoadFromDisk(_ context.Context) error {
	if d.snapshotPath == "" {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.fileMu.Lock()
	defer d.fileMu.Unlock()

	data, err := snapshot.ReadFile(d.snapshotPath)
	if err != nil {
		return err
	}

	if len(data) == 0 {
		d.logger.Debug("no snapshot to load", "path", d.snapshotPath)
		return nil
	}

	buckets, err := snapshot.Decode(data)
	if err != nil {
		return &storage.ConfigurationError{Path: d.snapshotPath, Err: err}
	}

	index := make(map[string]*bucket, len(buckets))
	total := 0
	for _, b := range buckets {
		index[b.Key.String()] = &bucket{key: b.Key, trajectories: b.Trajectories}
		total += len(b.Trajectories)
	}
	d.index = index

	d.logger.Debug("loaded snapshot",
		"path", d.snapshotPath,
		"buckets", len(buckets),
		"trajectories", total,
	)
	return nil
}

// Stats returns bucket and trajectory counts.
func (d *Driver) Stats(_ context.Context) (storage.Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := storage.Stats{Buckets: len(d.index)}
	for _, b := range d.index {
		stats.Trajectories += len(b.trajectories)
	}

	return stats, nil
}

// Keys returns the tag key of every bucket, ordered by canonical form.
func (d *Driver) Keys(_ context.Context) ([]trajectory.TagKey, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	keys := make([]trajectory.TagKey, 0, len(d.index))
	for _, b := range d.bucketsLocked() {
		keys = append(keys, b.Key.Tags())
	}

	return keys, nil
}

// SnapshotPath returns the configured snapshot path, or "" when the store is
// memory only.
func (d *Driver) SnapshotPath() string {
	return d.snapshotPath
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}

// bucketsLocked returns the index as snapshot buckets in canonical key order.
// The caller must hold mu.
func (d *Driver) bucketsLocked() []snapshot.Bucket {
	keys := slices.Sorted(maps.Keys(d.index))

	buckets := make([]snapshot.Bucket, 0, len(keys))
	for _, k := range keys {
		b := d.index[k]
		buckets = append(buckets, snapshot.Bucket{
			Key:          b.key,
			Trajectories: b.trajectories,
		})
	}

	return buckets
}

var (
	_ storage.Driver      = (*Driver)(nil)
	_ storage.Snapshotter = (*Driver)(nil)
	_ storage.KeyLister   = (*Driver)(nil)
)
