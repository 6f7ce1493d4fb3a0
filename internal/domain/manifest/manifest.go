// Package manifest parses extension manifests and enforces the structural,
// permission and store-origin rules a manifest must satisfy before an
// extension is installable.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"

	"github.com/felixgeelhaar/extkit/internal/domain/extension"
)

// MaxManifestSize bounds manifests read from disk.
const MaxManifestSize = 1 << 20

// Parse decodes a manifest.json document.
func Parse(data []byte) (*extension.Manifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &extension.DecodeError{Err: errors.New("empty manifest")}
	}
	var m extension.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &extension.DecodeError{Err: err}
	}
	return &m, nil
}

// ParseFile reads and decodes the manifest at path.
func ParseFile(path string) (*extension.Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &extension.IOError{Path: path, Err: err}
	}
	if info.Size() > MaxManifestSize {
		return nil, &extension.ValidationError{Reason: "Manifest exceeds size limit"}
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the caller
	if err != nil {
		return nil, &extension.IOError{Path: path, Err: err}
	}
	return Parse(data)
}
