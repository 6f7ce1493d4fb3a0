// Package source manages the catalogs extensions may be fetched from and the
// trust policy applied to them.
package source

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/extkit/internal/domain/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Type is the trust classification of a source.
type Type int

const (
	// TypeOfficial is the first-party catalog.
	TypeOfficial Type = iota
	// TypeCommunity is a curated third-party catalog.
	TypeCommunity
	// TypeCustom is a user-supplied catalog. Custom sources must use HTTPS
	// and may not point at local or private addresses.
	TypeCustom
)

// String returns the lowercase name.
func (t Type) String() string {
	switch t {
	case TypeOfficial:
		return "official"
	case TypeCommunity:
		return "community"
	case TypeCustom:
		return "custom"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// DisplayName returns the capitalized name.
func (t Type) DisplayName() string {
	return cases.Title(language.English).String(t.String())
}

// ParseType converts a name such as "custom" or "Community" to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "official":
		return TypeOfficial, nil
	case "community":
		return TypeCommunity, nil
	case "custom":
		return TypeCustom, nil
	default:
		return TypeCustom, fmt.Errorf("unknown source type %q (use official, community or custom)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Source is a configured catalog endpoint.
type Source struct {
	ID       string `json:"id" yaml:"id" toml:"id"`
	Name     string `json:"name" yaml:"name" toml:"name"`
	Type     Type   `json:"source_type" yaml:"type" toml:"type"`
	BaseURL  string `json:"base_url" yaml:"base_url" toml:"base_url"`
	Enabled  bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Priority int    `json:"priority" yaml:"priority" toml:"priority"`
}

// DefaultOfficialURL is the catalog used when no official URL is configured.
const DefaultOfficialURL = "https://extensions.arcadia.app"

// ReservedID is the id of the built-in official source.
const ReservedID = "default"

// Policy describes the reserved source a Manager starts with.
type Policy struct {
	Reserved Source
}

// DefaultPolicy returns the canonical bootstrap policy: a single enabled
// official source with id "default" and priority 0. An empty officialURL
// selects DefaultOfficialURL.
func DefaultPolicy(officialURL string) Policy {
	if strings.TrimSpace(officialURL) == "" {
		officialURL = DefaultOfficialURL
	}
	return Policy{
		Reserved: Source{
			ID:       ReservedID,
			Name:     "Official Store",
			Type:     TypeOfficial,
			BaseURL:  officialURL,
			Enabled:  true,
			Priority: 0,
		},
	}
}

// CheckQueryable reports whether s can be used to reach a catalog: it must
// be enabled and have a base URL.
func CheckQueryable(s Source) error {
	if !s.Enabled {
		return &extension.ValidationError{Reason: "Source is disabled"}
	}
	if strings.TrimSpace(s.BaseURL) == "" {
		return &extension.ValidationError{Reason: "Source has no base URL"}
	}
	return nil
}
