package storage

import (
	"errors"
	"fmt"
)

// ErrSnapshotUnsupported is returned by snapshot operations on a backend that
// has no snapshot file, such as the SQL drivers.
var ErrSnapshotUnsupported = errors.New("snapshots not supported by this storage backend")

// ErrKeysUnsupported is returned when the backend cannot list its buckets.
var ErrKeysUnsupported = errors.New("listing keys not supported by this storage backend")

// ErrClosed is returned by drivers that refuse writes after Close.
var ErrClosed = errors.New("storage driver is closed")

// ConfigurationError is returned when an existing snapshot cannot be decoded
// into a valid index. The data on disk is left as is.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid snapshot %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// PersistenceError is returned when the backing store fails at the
// filesystem or database level.
type PersistenceError struct {
	// Op names the failed step, e.g. "mkdir", "write", "rename", "insert".
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// InvalidArgumentError is returned for arguments a driver refuses to act on.
type InvalidArgumentError struct {
	Argument string
	Reason   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Reason)
}
