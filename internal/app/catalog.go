package app

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/extkit/internal/domain/source"
	"github.com/felixgeelhaar/extkit/internal/domain/store"
	"golang.org/x/sync/errgroup"
)

// maxParallelSources caps concurrent catalog queries during a search.
const maxParallelSources = 4

// SearchRequest describes a catalog search.
type SearchRequest struct {
	// SourceID limits the search to one source, which must be enabled and
	// have a URL. Empty queries every enabled source that has a URL.
	SourceID string
	Filters  store.Filters
	Sort     store.SortOption
	Page     int
	Limit    int
}

// SearchResult is a catalog entry tagged with the source it came from.
type SearchResult struct {
	SourceID  string
	Extension store.Extension
}

// Search queries one or all enabled sources. Results keep source priority
// order and, within a source, catalog order. Any failed source fails the
// search.
func (a *App) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	targets, err := a.searchTargets(req.SourceID)
	if err != nil {
		return nil, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = a.cfg.Store.PageSize
	}

	perSource := make([][]store.Extension, len(targets))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelSources)
	for i, s := range targets {
		eg.Go(func() error {
			exts, err := a.client.FetchExtensions(egCtx, s.BaseURL, req.Filters, req.Sort, page, limit)
			if err != nil {
				return err
			}
			perSource[i] = exts
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var results []SearchResult
	for i, exts := range perSource {
		for _, ext := range exts {
			results = append(results, SearchResult{SourceID: targets[i].ID, Extension: ext})
		}
	}
	return results, nil
}

func (a *App) searchTargets(sourceID string) ([]source.Source, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if sourceID != "" {
		s, ok := a.sources.Get(sourceID)
		if !ok {
			return nil, errSourceNotFound(sourceID)
		}
		if err := source.CheckQueryable(s); err != nil {
			return nil, err
		}
		return []source.Source{s}, nil
	}

	var targets []source.Source
	for _, s := range a.sources.Enabled() {
		if strings.TrimSpace(s.BaseURL) != "" {
			targets = append(targets, s)
		}
	}
	if len(targets) == 0 {
		return nil, ErrNoSources
	}
	return targets, nil
}

// Details fetches the full catalog record for id from sourceID, which must
// be enabled and have a URL.
func (a *App) Details(ctx context.Context, sourceID, id string) (*store.Details, error) {
	s, err := a.Source(sourceID)
	if err != nil {
		return nil, err
	}
	if err := source.CheckQueryable(s); err != nil {
		return nil, err
	}
	return a.client.FetchExtensionDetails(ctx, s.BaseURL, id)
}
