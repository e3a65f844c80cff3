package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Store manages the session file with locking.
type Store struct {
	dir string
}

// NewStore creates a new state store using the given directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// statePath returns the path to the session file.
func (s *Store) statePath() string {
	return filepath.Join(s.dir, "session.json")
}

// lockPath returns the path to the lock file.
func (s *Store) lockPath() string {
	return filepath.Join(s.dir, "session.lock")
}

// Load reads the state from disk. Returns an empty state if the file doesn't exist.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.statePath())
	if os.IsNotExist(err) {
		return newState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	st := newState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if st.Local == nil {
		st.Local = make(map[string]LocalSession)
	}
	if st.Remote == nil {
		st.Remote = make(map[string]RemoteSession)
	}
	return st, nil
}

// Save writes the state to disk.
func (s *Store) Save(st *State) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if existing, err := os.ReadFile(s.statePath()); err == nil {
		if bytes.Equal(existing, data) {
			return nil
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read session file: %w", err)
	}

	// Tokens live in this file, so it is created owner-only.
	tmpFile, err := os.CreateTemp(s.dir, filepath.Base(s.statePath())+".tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	name := tmpFile.Name()
	_, err = tmpFile.Write(data)
	if err1 := tmpFile.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err != nil {
		os.Remove(name)
		return fmt.Errorf("write temp session file: %w", err)
	}

	if err := os.Rename(name, s.statePath()); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename session file: %w", err)
	}

	return nil
}

// Update atomically reads, modifies, and writes the state with file locking.
func (s *Store) Update(fn func(st *State) error) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	lock := flock.New(s.lockPath())
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer lock.Unlock()

	st, err := s.Load()
	if err != nil {
		return err
	}

	if err := fn(st); err != nil {
		return err
	}

	return s.Save(st)
}

// LocalSession returns the user logged in against dataDir.
func (s *Store) LocalSession(dataDir string) (LocalSession, bool, error) {
	st, err := s.Load()
	if err != nil {
		return LocalSession{}, false, err
	}
	session, ok := st.Local[filepath.Clean(dataDir)]
	return session, ok, nil
}

// SetLocalSession records session for dataDir.
func (s *Store) SetLocalSession(dataDir string, session LocalSession) error {
	return s.Update(func(st *State) error {
		st.Local[filepath.Clean(dataDir)] = session
		return nil
	})
}

// ClearLocalSession forgets the session for dataDir and reports whether
// one existed.
func (s *Store) ClearLocalSession(dataDir string) (bool, error) {
	var existed bool
	err := s.Update(func(st *State) error {
		key := filepath.Clean(dataDir)
		_, existed = st.Local[key]
		delete(st.Local, key)
		return nil
	})
	return existed, err
}

// RemoteSession returns the tokens held for server.
func (s *Store) RemoteSession(server string) (RemoteSession, bool, error) {
	st, err := s.Load()
	if err != nil {
		return RemoteSession{}, false, err
	}
	session, ok := st.Remote[server]
	return session, ok, nil
}

// SetRemoteSession records tokens for server.
func (s *Store) SetRemoteSession(server string, session RemoteSession) error {
	return s.Update(func(st *State) error {
		st.Remote[server] = session
		return nil
	})
}

// ClearRemoteSession forgets the tokens for server and reports whether
// any existed.
func (s *Store) ClearRemoteSession(server string) (bool, error) {
	var existed bool
	err := s.Update(func(st *State) error {
		_, existed = st.Remote[server]
		delete(st.Remote, server)
		return nil
	})
	return existed, err
}
