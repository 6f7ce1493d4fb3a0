// Package sourcefile persists configured store sources as YAML, TOML or INI.
package sourcefile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/extkit/internal/domain/source"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Format is an on-disk encoding of the sources file.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatINI  Format = "ini"
)

var (
	// ErrUnsupportedFormat is returned for paths without a known extension.
	ErrUnsupportedFormat = errors.New("unsupported sources file format")
	// ErrCorrupt is returned when the file cannot be decoded.
	ErrCorrupt = errors.New("sources file is corrupt")
	// ErrSaveFailed is returned when the file cannot be written.
	ErrSaveFailed = errors.New("failed to save sources file")
)

// FormatFor selects the format from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".ini", ".conf":
		return FormatINI, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// document is the YAML and TOML layout.
type document struct {
	Sources []source.Source `yaml:"sources" toml:"sources"`
}

// Repository reads and writes sources files.
type Repository struct{}

// NewRepository creates a sources file repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Load reads the sources stored at path. A missing file holds no sources.
func (r *Repository) Load(_ context.Context, path string) ([]source.Source, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var sources []source.Source
	switch format {
	case FormatYAML:
		var doc document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		sources = doc.Sources
	case FormatTOML:
		var doc document
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		sources = doc.Sources
	case FormatINI:
		sources, err = decodeINI(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	}
	return sources, nil
}

// Save writes sources to path, creating parent directories as needed.
func (r *Repository) Save(_ context.Context, path string, sources []source.Source) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(&document{Sources: sources})
	case FormatTOML:
		data, err = toml.Marshal(&document{Sources: sources})
	case FormatINI:
		data, err = encodeINI(sources)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %w", ErrSaveFailed, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// decodeINI reads one section per source; the section name is the id.
func decodeINI(data []byte) ([]source.Source, error) {
	cfg, err := ini.Load(data)
	if err != nil {
		return nil, err
	}

	var sources []source.Source
	for _, section := range cfg.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		typ, err := source.ParseType(section.Key("type").MustString("custom"))
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", section.Name(), err)
		}
		var priority int
		if section.HasKey("priority") {
			priority, err = section.Key("priority").Int()
			if err != nil {
				return nil, fmt.Errorf("section %q: invalid priority: %w", section.Name(), err)
			}
		}
		sources = append(sources, source.Source{
			ID:       section.Name(),
			Name:     section.Key("name").String(),
			Type:     typ,
			BaseURL:  section.Key("base_url").String(),
			Enabled:  section.Key("enabled").MustBool(true),
			Priority: priority,
		})
	}
	return sources, nil
}

func encodeINI(sources []source.Source) ([]byte, error) {
	cfg := ini.Empty()
	for _, s := range sources {
		section, err := cfg.NewSection(s.ID)
		if err != nil {
			return nil, err
		}
		values := [][2]string{
			{"name", s.Name},
			{"type", s.Type.String()},
			{"base_url", s.BaseURL},
			{"enabled", fmt.Sprintf("%t", s.Enabled)},
			{"priority", fmt.Sprintf("%d", s.Priority)},
		}
		for _, kv := range values {
			if _, err := section.NewKey(kv[0], kv[1]); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
