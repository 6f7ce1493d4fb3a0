// Package extension holds the types shared by the manifest, source, store and
// registry packages: the extension type enum, the installed-extension record
// and the error taxonomy.
package extension

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Type is the kind of an extension.
type Type int

const (
	// TypeTheme is a visual theme. It is also the fallback for unknown values.
	TypeTheme Type = iota
	// TypeDataSource provides metadata from an external service.
	TypeDataSource
	// TypeGameLibrary imports entries from a game library.
	TypeGameLibrary
)

// Types lists every extension type in declaration order.
func Types() []Type {
	return []Type{TypeTheme, TypeDataSource, TypeGameLibrary}
}

// String returns the wire name.
func (t Type) String() string {
	switch t {
	case TypeDataSource:
		return "data_source"
	case TypeGameLibrary:
		return "game_library"
	default:
		return "theme"
	}
}

// DisplayName returns a human readable name such as "Data Source".
func (t Type) DisplayName() string {
	return cases.Title(language.English).String(strings.ReplaceAll(t.String(), "_", " "))
}

// ParseType converts a wire value to a Type. Both the manifest form
// ("data_source") and the catalog form ("DataSource") are accepted.
// Unrecognized values map to TypeTheme.
func ParseType(s string) Type {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "datasource":
		return TypeDataSource
	case "gamelibrary":
		return TypeGameLibrary
	default:
		return TypeTheme
	}
}

// MarshalJSON encodes the wire name.
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a wire name. Unknown strings become TypeTheme.
func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseType(s)
	return nil
}

// Info is the registry record for an installed extension. It is stored
// exactly as registered.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"extension_type"`
	Enabled     bool   `json:"enabled"`
}

// Permission records whether a permission requested by an extension was
// granted by the host.
type Permission struct {
	ExtensionID string `json:"extension_id"`
	Permission  string `json:"permission"`
	Granted     bool   `json:"granted"`
}

// Setting is a per-extension key/value. A nil Value means unset.
type Setting struct {
	ExtensionID string  `json:"extension_id"`
	Key         string  `json:"key"`
	Value       *string `json:"value,omitempty"`
}
