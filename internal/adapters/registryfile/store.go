// Package registryfile persists the extension registry as a JSON document.
package registryfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/extkit/internal/domain/registry"
)

// FormatVersion is written into every registry file.
const FormatVersion = 1

var (
	// ErrCorrupt is returned when the registry file cannot be decoded.
	ErrCorrupt = errors.New("registry file is corrupt")
	// ErrUnsupportedVersion is returned for files written by a newer release.
	ErrUnsupportedVersion = errors.New("unsupported registry file version")
	// ErrSaveFailed is returned when the registry file cannot be written.
	ErrSaveFailed = errors.New("failed to save registry file")
)

type fileDTO struct {
	Version int `json:"version"`
	*registry.Snapshot
}

// Store implements registry.Store on a single JSON file.
type Store struct {
	path string
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot. A missing file yields an empty snapshot.
func (s *Store) Load(_ context.Context) (*registry.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &registry.Snapshot{}, nil
		}
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	dto := fileDTO{Snapshot: &registry.Snapshot{}}
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if dto.Version > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, dto.Version)
	}
	return dto.Snapshot, nil
}

// Save writes snap through a temporary file so readers never see a partial
// document.
func (s *Store) Save(_ context.Context, snap *registry.Snapshot) error {
	if snap == nil {
		snap = &registry.Snapshot{}
	}
	data, err := json.MarshalIndent(fileDTO{Version: FormatVersion, Snapshot: snap}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %w", ErrSaveFailed, err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

var _ registry.Store = (*Store)(nil)
