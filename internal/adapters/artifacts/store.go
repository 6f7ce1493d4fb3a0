// Package artifacts keeps verified extension packages on the local disk.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/felixgeelhaar/extkit/internal/domain/install"
)

// PackageExt is the file extension of stored packages.
const PackageExt = ".pkg"

// ErrInvalidName is returned for ids or versions that would escape the root.
var ErrInvalidName = errors.New("invalid artifact name")

// Store lays packages out as <root>/<id>/<version>.pkg.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Path returns where the package for id at version is stored.
func (s *Store) Path(id, version string) (string, error) {
	if err := checkName(id); err != nil {
		return "", err
	}
	if err := checkName(version); err != nil {
		return "", err
	}
	return filepath.Join(s.root, id, version+PackageExt), nil
}

// Save writes data for id at version, replacing an existing copy.
func (s *Store) Save(_ context.Context, id, version string, data []byte) (string, error) {
	path, err := s.Path(id, version)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact dir: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}

// Remove deletes every stored version of id. Unknown ids are ignored.
func (s *Store) Remove(_ context.Context, id string) error {
	if err := checkName(id); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.root, id)); err != nil {
		return fmt.Errorf("failed to remove artifacts for %s: %w", id, err)
	}
	return nil
}

// RemoveVersion deletes one stored version of id. A missing file is
// ignored.
func (s *Store) RemoveVersion(_ context.Context, id, version string) error {
	path, err := s.Path(id, version)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove artifact %s %s: %w", id, version, err)
	}
	return nil
}

// Versions lists the stored versions of id in lexical order.
func (s *Store) Versions(_ context.Context, id string) ([]string, error) {
	if err := checkName(id); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var versions []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), PackageExt) {
			continue
		}
		versions = append(versions, strings.TrimSuffix(e.Name(), PackageExt))
	}
	sort.Strings(versions)
	return versions, nil
}

func checkName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

var _ install.ArtifactStore = (*Store)(nil)
