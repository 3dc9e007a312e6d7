// Package storage defines the contract shared by every trajectory backend.
package storage

import (
	"context"

	"github.com/papercomputeco/replay/pkg/trajectory"
)

// DefaultPageSize is the page size used when callers do not pick one.
const DefaultPageSize = 20

// Driver defines the interface for appending and retrieving trajectories in a
// storage backend. Trajectories are grouped into buckets keyed by their exact,
// order-sensitive tag sequence.
type Driver interface {
	// Add appends a trajectory to the bucket for its tags, creating the bucket
	// if absent. Insertion order within a bucket is preserved permanently and
	// no deduplication is performed.
	Add(ctx context.Context, t *trajectory.Trajectory) error

	// Fetch returns the window [page*pageSize, (page+1)*pageSize) of the bucket
	// for tags, clipped to the bucket bounds. Unknown tags or pages past the
	// end yield an empty slice, not an error. A non-positive pageSize returns
	// an *InvalidArgumentError.
	Fetch(ctx context.Context, tags []string, page, pageSize int) ([]*trajectory.Trajectory, error)

	// Stats returns bucket and trajectory counts.
	Stats(ctx context.Context) (Stats, error)

	// Close closes the store and releases any resources.
	Close() error
}

// Snapshotter is implemented by drivers that keep a whole-index snapshot file.
type Snapshotter interface {
	// SaveToDisk writes the full index to the configured snapshot path.
	SaveToDisk(ctx context.Context) error

	// LoadFromDisk replaces the index with the snapshot's contents. A missing
	// or empty snapshot leaves the index untouched.
	LoadFromDisk(ctx context.Context) error
}

// KeyLister is implemented by drivers that can enumerate their buckets.
type KeyLister interface {
	// Keys returns the tag key of every bucket, ordered by canonical form.
	Keys(ctx context.Context) ([]trajectory.TagKey, error)
}

// Stats summarizes the contents of a store.
type Stats struct {
	Buckets      int `json:"buckets"`
	Trajectories int `json:"trajectories"`
}
