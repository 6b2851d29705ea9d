// Package prefs persists the inspector's on/off and mode flags between runs.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store loads and saves the persisted flags.
type Store interface {
	Load() (schemas.State, error)
	Save(schemas.State) error
}

// FileStore keeps the flags as a small JSON document.
type FileStore struct {
	path     string
	defaults schemas.State
	mu       sync.Mutex
}

// NewFileStore resolves path, expanding a leading "~", and returns a store that
// falls back to defaults until something is saved.
func NewFileStore(path string, defaults schemas.State) (*FileStore, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand prefs path %q: %w", path, err)
	}
	return &FileStore{path: expanded, defaults: defaults}, nil
}

// FromConfig builds the store described by the prefs section.
func FromConfig(cfg config.PrefsConfig) (*FileStore, error) {
	return NewFileStore(cfg.Path, schemas.State{
		Enabled:    cfg.Enabled,
		SweepMode:  cfg.SweepMode,
		ShowLegend: cfg.ShowLegend,
	})
}

// Path is the resolved file location.
func (s *FileStore) Path() string { return s.path }

// Load returns the saved flags, or the defaults when nothing was saved yet.
func (s *FileStore) Load() (schemas.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.defaults, nil
	}
	if err != nil {
		return s.defaults, fmt.Errorf("failed to read prefs: %w", err)
	}
	state := s.defaults
	if err := json.Unmarshal(data, &state); err != nil {
		return s.defaults, fmt.Errorf("failed to decode prefs %s: %w", s.path, err)
	}
	return state, nil
}

// Save writes the flags atomically.
func (s *FileStore) Save(state schemas.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode prefs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create prefs directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write prefs: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace prefs: %w", err)
	}
	return nil
}
