package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock takes an exclusive lock on path, creating it if needed. The
// returned function releases the lock.
func Lock(path string) (func() error, error) {
	fileLock, err := newLock(path)
	if err != nil {
		return nil, err
	}
	if err := fileLock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	return fileLock.Unlock, nil
}

// RLock takes a shared lock on path. Shared holders exclude Lock but not
// each other.
func RLock(path string) (func() error, error) {
	fileLock, err := newLock(path)
	if err != nil {
		return nil, err
	}
	if err := fileLock.RLock(); err != nil {
		return nil, fmt.Errorf("acquire shared lock %s: %w", path, err)
	}
	return fileLock.Unlock, nil
}

func newLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	return flock.New(path), nil
}
