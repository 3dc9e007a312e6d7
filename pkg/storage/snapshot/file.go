package snapshot

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/papercomputeco/replay/pkg/storage"
)

// ReadFile reads the whole snapshot at path into memory. A missing file
// yields nil data and no error; callers treat zero-length data as "no
// snapshot yet".
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &storage.PersistenceError{Op: "read", Path: path, Err: err}
	}

	return data, nil
}

// WriteFile replaces the snapshot at path with data. The parent directory is
// created if missing. Data goes to a temp file in the same directory that is
// synced and renamed into place, so an interrupted write never leaves a
// half-written snapshot at path. The temp file is removed on failure.
func WriteFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		return &storage.PersistenceError{Op: "mkdir", Path: dir, Err: mkErr}
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return &storage.PersistenceError{Op: "create", Path: dir, Err: err}
	}
	tmpPath := f.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return &storage.PersistenceError{Op: "write", Path: tmpPath, Err: errors.Join(err, f.Close())}
	}

	if err = f.Sync(); err != nil {
		return &storage.PersistenceError{Op: "sync", Path: tmpPath, Err: errors.Join(err, f.Close())}
	}

	if err = f.Close(); err != nil {
		return &storage.PersistenceError{Op: "close", Path: tmpPath, Err: err}
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return &storage.PersistenceError{Op: "rename", Path: path, Err: err}
	}

	return nil
}
