package artifact

import (
	"bufio"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// DefaultPath is where the service keeps its model unless configured.
const DefaultPath = "models/model_store.gob"

// lockRetry is how often a blocked Save polls for the file lock.
const lockRetry = 50 * time.Millisecond

// Store reads and writes one artifact file. Writes go to a temporary file in
// the same directory which is synced and renamed over the target, so readers
// only ever see the previous or the new artifact. An exclusive lock on
// path+".lock" serialises writers across processes.
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore returns a store for path.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	path = filepath.Clean(path)
	return &Store{path: path, lock: flock.New(path + ".lock")}
}

// Path is the artifact file location.
func (s *Store) Path() string { return s.path }

// Save persists a, replacing any previous artifact atomically.
func (s *Store) Save(ctx context.Context, a *Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("artifact: ensure directory %q: %w", dir, err)
	}
	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("artifact: lock %q: %w", s.lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("artifact: lock %q not acquired", s.lock.Path())
	}
	defer func() { _ = s.lock.Unlock() }()

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("artifact: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := gob.NewEncoder(w).Encode(a); err != nil {
		return fmt.Errorf("artifact: encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("artifact: write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("artifact: sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifact: close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("artifact: commit snapshot: %w", err)
	}
	committed = true
	syncDir(dir)
	return nil
}

// Load reads the artifact. It returns ErrNotFound when nothing has been
// saved, and an error wrapping ErrInvalid when the file decodes into
// something that cannot serve predictions.
func (s *Store) Load() (*Artifact, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("artifact: read %q: %w", s.path, err)
	}
	defer f.Close()

	var a Artifact
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: decode %q: %v", ErrInvalid, s.path, err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("artifact: %q: %w", s.path, err)
	}
	return &a, nil
}

// syncDir flushes the rename to disk where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
