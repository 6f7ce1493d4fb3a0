package install

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/extkit/internal/domain/extension"
	"github.com/felixgeelhaar/extkit/internal/domain/source"
	"github.com/felixgeelhaar/extkit/internal/domain/store"
	"golang.org/x/mod/semver"
)

// DetailsFetcher fetches one catalog record.
type DetailsFetcher interface {
	FetchExtensionDetails(ctx context.Context, baseURL, id string) (*store.Details, error)
}

// Update is a newer catalog version of an installed extension.
type Update struct {
	ID        string
	Installed string
	Available string
	SourceID  string
}

// Outdated compares each installed extension against the first source, in
// priority order, whose catalog knows it. Extensions a source does not list
// are skipped, as are versions that are not semver. The first transport
// error other than a 404 aborts the check.
func Outdated(ctx context.Context, catalog DetailsFetcher, sources []source.Source, installed []extension.Info) ([]Update, error) {
	var updates []Update
	for _, info := range installed {
		for _, src := range sources {
			if !src.Enabled || src.BaseURL == "" {
				continue
			}
			details, err := catalog.FetchExtensionDetails(ctx, src.BaseURL, info.ID)
			if err != nil {
				if isNotListed(err) {
					continue
				}
				return updates, err
			}
			if newer(details.Version, info.Version) {
				updates = append(updates, Update{
					ID:        info.ID,
					Installed: info.Version,
					Available: details.Version,
					SourceID:  src.ID,
				})
			}
			break
		}
	}
	return updates, nil
}

func isNotListed(err error) bool {
	var netErr *extension.NetworkError
	return errors.As(err, &netErr) && netErr.StatusCode == http.StatusNotFound
}

// newer reports whether candidate is a higher semantic version than current.
func newer(candidate, current string) bool {
	c, cur := canonical(candidate), canonical(current)
	if !semver.IsValid(c) || !semver.IsValid(cur) {
		return false
	}
	return semver.Compare(c, cur) > 0
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
