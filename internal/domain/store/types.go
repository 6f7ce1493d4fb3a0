package store

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/extkit/internal/domain/extension"
)

// Extension is a catalog listing entry.
type Extension struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Version       string         `json:"version"`
	Author        string         `json:"author"`
	Description   string         `json:"description"`
	Type          extension.Type `json:"extension_type"`
	DownloadCount int64          `json:"download_count"`
	Rating        float64        `json:"rating"`
	Tags          []string       `json:"tags"`
}

// Details is the full catalog record for one extension.
type Details struct {
	Extension
	ManifestURL  string            `json:"manifest_url"`
	PackageURL   string            `json:"package_url"`
	Checksum     string            `json:"checksum"`
	Readme       string            `json:"readme"`
	Screenshots  []string          `json:"screenshots"`
	Dependencies map[string]string `json:"dependencies"`
}

// Filters narrows a catalog listing. Zero values are omitted from the query.
type Filters struct {
	Type   *extension.Type
	Tags   []string
	Search string
}

// WithType returns a copy of f filtered to typ.
func (f Filters) WithType(typ extension.Type) Filters {
	f.Type = &typ
	return f
}

// SortOption orders a catalog listing.
type SortOption int

const (
	// SortName orders by name.
	SortName SortOption = iota
	// SortDownloadCount orders by downloads.
	SortDownloadCount
	// SortRating orders by rating.
	SortRating
	// SortNewest orders by publication date.
	SortNewest
)

// Token returns the query value sent to the catalog.
func (s SortOption) Token() string {
	switch s {
	case SortDownloadCount:
		return "downloads"
	case SortRating:
		return "rating"
	case SortNewest:
		return "newest"
	default:
		return "name"
	}
}

// String returns the query token.
func (s SortOption) String() string {
	return s.Token()
}

// ParseSortOption accepts a query token or an option name.
func ParseSortOption(s string) (SortOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name":
		return SortName, nil
	case "downloads", "downloadcount", "download_count":
		return SortDownloadCount, nil
	case "rating":
		return SortRating, nil
	case "newest":
		return SortNewest, nil
	default:
		return SortName, fmt.Errorf("unknown sort option %q (use name, downloads, rating or newest)", s)
	}
}
