// Package snapshot persists whole collections to disk.
//
// Collections are written as gob snapshots that are replaced wholesale on
// every save. Finished tasks are also kept in a human-readable JSON archive
// that is updated one record at a time.
package snapshot

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnreadable reports a snapshot that exists but could not be decoded.
// Load still returns a usable empty collection alongside it.
var ErrUnreadable = errors.New("snapshot unreadable")

// Save writes collection to path, replacing any previous snapshot.
func Save[T any](path string, collection T) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(collection); err != nil {
		return fmt.Errorf("encode snapshot %s: %w", path, err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

// Load reads a snapshot from path. A missing file yields the zero
// collection and no error. An unreadable file yields the zero collection
// and an error wrapping ErrUnreadable.
func Load[T any](path string) (T, error) {
	var collection T

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return collection, nil
	}
	if err != nil {
		return collection, fmt.Errorf("%w: read %s: %v", ErrUnreadable, path, err)
	}
	if len(data) == 0 {
		return collection, nil
	}

	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&collection); err != nil {
		var empty T
		return empty, fmt.Errorf("%w: decode %s: %v", ErrUnreadable, path, err)
	}
	return collection, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	if existing, err := os.ReadFile(path); err == nil {
		if bytes.Equal(existing, data) {
			return nil
		}
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmpFile.Name()
	_, err = tmpFile.Write(data)
	if err1 := tmpFile.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err != nil {
		os.Remove(name)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
