// Package statestore persists per-machine engine state as one JSON file
// per machine. Writers replace the file atomically (write to a temp file,
// then rename) so a crash mid-write can never corrupt the last durable
// state. A sibling lock file provides cross-process mutual exclusion: the
// admin bot, the metrics reader, and device check-ins may all touch the
// same machine's file. Each machine's file is independent; there is no
// cross-machine atomicity.
package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"machine-access-backend/internal/engine"
)

// lockTimeout bounds how long a reader or writer waits for the file
// lock. The lock is only ever held across a serialize/write or a
// read/deserialize, never across network I/O, so contention is brief.
const lockTimeout = 5 * time.Second

// ErrLockTimeout is returned when the per-machine lock file could not be
// acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for state file lock")

// Store reads and writes machine state files under a single directory.
type Store struct {
	dir string
}

// New creates the state directory if needed and returns a store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) statePath(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *Store) lockPath(name string) string {
	return filepath.Join(s.dir, name+".lock")
}

func (s *Store) acquire(name string, shared bool) (*flock.Flock, error) {
	lock := flock.New(s.lockPath(name))
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = lock.TryRLockContext(ctx, 50*time.Millisecond)
	} else {
		ok, err = lock.TryLockContext(ctx, 50*time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire state lock for %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, name)
	}
	return lock, nil
}

// Save serializes the full state and atomically replaces the machine's
// state file under the exclusive lock.
func (s *Store) Save(name string, st engine.State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize state for %s: %w", name, err)
	}

	lock, err := s.acquire(name, false)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state for %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state for %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state for %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.statePath(name)); err != nil {
		return fmt.Errorf("replace state file for %s: %w", name, err)
	}
	return nil
}

// Load reads the machine's last durable state under the shared lock. A
// missing file is not an error; found is false and the caller starts at
// defaults. Unknown fields in the file are ignored and missing fields
// fall back to zero values.
func (s *Store) Load(name string) (engine.State, bool, error) {
	lock, err := s.acquire(name, true)
	if err != nil {
		return engine.State{}, false, err
	}
	defer lock.Unlock()

	data, err := os.ReadFile(s.statePath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return engine.State{}, false, nil
	}
	if err != nil {
		return engine.State{}, false, fmt.Errorf("read state for %s: %w", name, err)
	}

	var st engine.State
	if err := json.Unmarshal(data, &st); err != nil {
		return engine.State{}, false, fmt.Errorf("parse state for %s: %w", name, err)
	}
	return st, true, nil
}
