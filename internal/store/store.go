package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hbrandt/coincast/internal/sim"
)

const (
	activeFile  = "active.json"
	archiveFile = "archive.json"
)

// Store is durable local storage for the single active simulation plus an
// append-only archive of finished ones. One slot, by design: at most one
// simulation is active process-wide.
type Store struct {
	mu  sync.Mutex
	dir string
}

// Open creates a Store rooted at dir, creating it if needed. An empty dir
// uses <user config dir>/coincast.
func Open(dir string) (*Store, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "coincast")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the active descriptor to the slot, replacing any previous one.
func (s *Store) Save(d sim.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(activeFile, d)
}

// Get reads the active descriptor. ok=false when the slot is empty.
func (s *Store) Get() (sim.Descriptor, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var d sim.Descriptor
	err := s.readJSON(activeFile, &d)
	if errors.Is(err, os.ErrNotExist) {
		return sim.Descriptor{}, false, nil
	}
	if err != nil {
		return sim.Descriptor{}, false, err
	}
	return d, true, nil
}

// Clear empties the slot. Clearing an empty slot is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, activeFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Archive appends a finished descriptor to the history log.
func (s *Store) Archive(d sim.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []sim.Descriptor
	if err := s.readJSON(archiveFile, &all); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	d.Active = false
	all = append(all, d)
	return s.writeJSON(archiveFile, all)
}

// ListArchived returns every archived descriptor, oldest first.
func (s *Store) ListArchived() ([]sim.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []sim.Descriptor
	if err := s.readJSON(archiveFile, &all); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return all, nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	// Write-and-rename so a crash never leaves a half-written slot.
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(s.dir, name))
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
