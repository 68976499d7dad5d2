// Package file persists the schedule document as a JSON file with atomic
// replace semantics, so a crash mid-write never leaves a torn document.
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dailymanna/manna/internal/schedule"
)

// Load reads a schedule document from disk. A missing file is not an error;
// it yields an empty schedule, since the first run starts from nothing.
func Load(path string) (*schedule.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return schedule.New(), nil
		}
		return nil, fmt.Errorf("failed to read schedule file: %w", err)
	}
	s, err := schedule.UnmarshalDocument(data)
	if err != nil {
		return nil, fmt.Errorf("schedule file %s: %w", path, err)
	}
	return s, nil
}

// Save writes the document to a temporary file in the target directory and
// renames it into place. Parent directories are created as needed.
func Save(path string, s *schedule.Schedule) error {
	data, err := schedule.MarshalDocument(s)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create schedule directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp schedule file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write schedule file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp schedule file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace schedule file: %w", err)
	}
	return nil
}

// Store serializes read-modify-write cycles on one schedule file. Every
// mutation goes through Update so that concurrent jobs and HTTP handlers
// never interleave a load and a save.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file location.
func (st *Store) Path() string { return st.path }

// View loads the current document and runs fn against it without saving.
func (st *Store) View(fn func(*schedule.Schedule) error) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := Load(st.path)
	if err != nil {
		return err
	}
	return fn(s)
}

// Update loads the document, applies fn, and persists it when fn reports a
// change. Returning (false, nil) skips the write entirely.
func (st *Store) Update(fn func(*schedule.Schedule) (bool, error)) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := Load(st.path)
	if err != nil {
		return err
	}
	changed, err := fn(s)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return Save(st.path, s)
}
