// Package mcp exposes extkit over the Model Context Protocol.
package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/extkit/internal/app"
	"github.com/felixgeelhaar/extkit/internal/domain/extension"
	"github.com/felixgeelhaar/extkit/internal/domain/install"
	"github.com/felixgeelhaar/extkit/internal/domain/source"
	"github.com/felixgeelhaar/extkit/internal/domain/store"
	"github.com/felixgeelhaar/mcp-go"
)

// VersionInfo contains version metadata for the MCP server.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// ListSourcesInput is the input for the extkit_list_sources tool.
type ListSourcesInput struct {
	EnabledOnly bool `json:"enabled_only,omitempty" jsonschema:"description=Only list enabled sources"`
}

// ListSourcesOutput is the output for the extkit_list_sources tool.
type ListSourcesOutput struct {
	Sources []SourceItem `json:"sources"`
}

// SourceItem describes a configured source.
type SourceItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	BaseURL  string `json:"base_url"`
	Enabled  bool   `json:"enabled"`
	Priority int    `json:"priority"`
}

// SearchInput is the input for the extkit_search tool.
type SearchInput struct {
	SourceID string   `json:"source_id,omitempty" jsonschema:"description=Source to query (default: all enabled sources)"`
	Type     string   `json:"type,omitempty" jsonschema:"description=Extension type: theme, data_source or game_library"`
	Tags     []string `json:"tags,omitempty" jsonschema:"description=Tags every result must carry"`
	Search   string   `json:"search,omitempty" jsonschema:"description=Free-text search term"`
	Sort     string   `json:"sort,omitempty" jsonschema:"description=Sort order: name, downloads, rating or newest (default: name)"`
	Page     int      `json:"page,omitempty" jsonschema:"description=Page number starting at 1"`
	Limit    int      `json:"limit,omitempty" jsonschema:"description=Results per page"`
}

// SearchOutput is the output for the extkit_search tool.
type SearchOutput struct {
	Results []SearchItem `json:"results"`
	Count   int          `json:"count"`
}

// SearchItem is one catalog entry.
type SearchItem struct {
	SourceID      string   `json:"source_id"`
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Author        string   `json:"author,omitempty"`
	Description   string   `json:"description,omitempty"`
	Type          string   `json:"type"`
	DownloadCount int64    `json:"download_count"`
	Rating        float64  `json:"rating"`
	Tags          []string `json:"tags,omitempty"`
}

// DetailsInput is the input for the extkit_details tool.
type DetailsInput struct {
	SourceID    string `json:"source_id,omitempty" jsonschema:"description=Source to query (default: the official source)"`
	ExtensionID string `json:"extension_id" jsonschema:"required,description=Catalog id of the extension"`
}

// DetailsOutput is the output for the extkit_details tool.
type DetailsOutput struct {
	SearchItem
	ManifestURL  string            `json:"manifest_url"`
	PackageURL   string            `json:"package_url"`
	Checksum     string            `json:"checksum"`
	Readme       string            `json:"readme,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// ListExtensionsInput is the input for the extkit_list_extensions tool.
type ListExtensionsInput struct {
	EnabledOnly bool `json:"enabled_only,omitempty" jsonschema:"description=Only list enabled extensions"`
}

// ListExtensionsOutput is the output for the extkit_list_extensions tool.
type ListExtensionsOutput struct {
	Extensions []ExtensionItem `json:"extensions"`
}

// ExtensionItem describes an installed extension.
type ExtensionItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Type        string   `json:"type"`
	Enabled     bool     `json:"enabled"`
	Permissions []string `json:"permissions,omitempty"`
}

// ValidateManifestInput is the input for the extkit_validate_manifest tool.
type ValidateManifestInput struct {
	Path        string `json:"path" jsonschema:"required,description=Path to manifest.json"`
	StoreOrigin bool   `json:"store_origin,omitempty" jsonschema:"description=Also apply the rules for manifests downloaded from a store"`
}

// ValidateManifestOutput is the output for the extkit_validate_manifest tool.
type ValidateManifestOutput struct {
	Valid            bool     `json:"valid"`
	Error            string   `json:"error,omitempty"`
	Name             string   `json:"name,omitempty"`
	Version          string   `json:"version,omitempty"`
	Permissions      []string `json:"permissions,omitempty"`
	DependencyIssues []string `json:"dependency_issues,omitempty"`
}

// OutdatedInput is the input for the extkit_outdated tool.
type OutdatedInput struct{}

// OutdatedOutput is the output for the extkit_outdated tool.
type OutdatedOutput struct {
	Updates []UpdateItem `json:"updates"`
}

// UpdateItem is an available update.
type UpdateItem struct {
	ID        string `json:"id"`
	Installed string `json:"installed"`
	Available string `json:"available"`
	SourceID  string `json:"source_id"`
}

// InstallInput is the input for the extkit_install tool.
type InstallInput struct {
	SourceID    string `json:"source_id,omitempty" jsonschema:"description=Source to install from (default: the official source)"`
	ExtensionID string `json:"extension_id" jsonschema:"required,description=Catalog id of the extension"`
	Disabled    bool   `json:"disabled,omitempty" jsonschema:"description=Register the extension without enabling it"`
	Confirm     bool   `json:"confirm" jsonschema:"required,description=Must be true to install (safety confirmation)"`
}

// InstallOutput is the output for the extkit_install tool.
type InstallOutput struct {
	Installed        bool     `json:"installed"`
	Stage            string   `json:"stage"`
	Stages           []string `json:"stages,omitempty"`
	Version          string   `json:"version,omitempty"`
	Path             string   `json:"path,omitempty"`
	DependencyIssues []string `json:"dependency_issues,omitempty"`
	Message          string   `json:"message,omitempty"`
}

// StatusInput is the input for the extkit_status tool.
type StatusInput struct{}

// StatusOutput is the output for the extkit_status tool.
type StatusOutput struct {
	Version        string `json:"version"`
	Commit         string `json:"commit"`
	BuildDate      string `json:"build_date"`
	Sources        int    `json:"sources"`
	EnabledSources int    `json:"enabled_sources"`
	Installed      int    `json:"installed"`
	Enabled        int    `json:"enabled"`
}

// RegisterAll registers every extkit tool on srv.
func RegisterAll(srv *mcp.Server, a *app.App, versionInfo VersionInfo) {
	registerStatusTool(srv, a, versionInfo)
	registerListSourcesTool(srv, a)
	registerSearchTool(srv, a)
	registerDetailsTool(srv, a)
	registerListExtensionsTool(srv, a)
	registerValidateManifestTool(srv, a)
	registerOutdatedTool(srv, a)
	registerInstallTool(srv, a)
}

func registerStatusTool(srv *mcp.Server, a *app.App, versionInfo VersionInfo) {
	srv.Tool("extkit_status").
		Description("Get extkit version info and counts of configured sources and installed extensions.").
		ReadOnly().
		Handler(func(_ context.Context, _ StatusInput) (*StatusOutput, error) {
			output := &StatusOutput{
				Version:   versionInfo.Version,
				Commit:    versionInfo.Commit,
				BuildDate: versionInfo.BuildDate,
			}
			for _, s := range a.Sources() {
				output.Sources++
				if s.Enabled {
					output.EnabledSources++
				}
			}
			for _, info := range a.Installed() {
				output.Installed++
				if info.Enabled {
					output.Enabled++
				}
			}
			return output, nil
		})
}

func registerListSourcesTool(srv *mcp.Server, a *app.App) {
	srv.Tool("extkit_list_sources").
		Description("List the store sources extensions can be installed from, by priority.").
		ReadOnly().
		Handler(func(_ context.Context, in ListSourcesInput) (*ListSourcesOutput, error) {
			output := &ListSourcesOutput{Sources: make([]SourceItem, 0)}
			for _, s := range a.Sources() {
				if in.EnabledOnly && !s.Enabled {
					continue
				}
				output.Sources = append(output.Sources, sourceItem(s))
			}
			return output, nil
		})
}

func registerSearchTool(srv *mcp.Server, a *app.App) {
	srv.Tool("extkit_search").
		Description("Search store catalogs for extensions by type, tags and text.").
		ReadOnly().
		Handler(func(ctx context.Context, in SearchInput) (*SearchOutput, error) {
			if err := ValidateSearchInput(&in); err != nil {
				return nil, err
			}

			req := app.SearchRequest{
				SourceID: in.SourceID,
				Filters:  store.Filters{Tags: in.Tags, Search: in.Search},
				Page:     in.Page,
				Limit:    in.Limit,
			}
			if in.Type != "" {
				req.Filters = req.Filters.WithType(extension.ParseType(in.Type))
			}
			if in.Sort != "" {
				sort, err := store.ParseSortOption(in.Sort)
				if err != nil {
					return nil, err
				}
				req.Sort = sort
			}

			results, err := a.Search(ctx, req)
			if err != nil {
				return nil, err
			}

			output := &SearchOutput{Results: make([]SearchItem, 0, len(results))}
			for _, r := range results {
				output.Results = append(output.Results, searchItem(r.SourceID, r.Extension))
			}
			output.Count = len(output.Results)
			return output, nil
		})
}

func registerDetailsTool(srv *mcp.Server, a *app.App) {
	srv.Tool("extkit_details").
		Description("Fetch the full catalog record of one extension, including its checksum and dependencies.").
		ReadOnly().
		Handler(func(ctx context.Context, in DetailsInput) (*DetailsOutput, error) {
			if err := ValidateDetailsInput(&in); err != nil {
				return nil, err
			}
			sourceID := in.SourceID
			if sourceID == "" {
				sourceID = source.ReservedID
			}

			d, err := a.Details(ctx, sourceID, in.ExtensionID)
			if err != nil {
				return nil, err
			}
			return &DetailsOutput{
				SearchItem:   searchItem(sourceID, d.Extension),
				ManifestURL:  d.ManifestURL,
				PackageURL:   d.PackageURL,
				Checksum:     d.Checksum,
				Readme:       d.Readme,
				Dependencies: d.Dependencies,
			}, nil
		})
}

func registerListExtensionsTool(srv *mcp.Server, a *app.App) {
	srv.Tool("extkit_list_extensions").
		Description("List installed extensions with their enabled state and granted permissions.").
		ReadOnly().
		Handler(func(_ context.Context, in ListExtensionsInput) (*ListExtensionsOutput, error) {
			infos := a.Installed()
			if in.EnabledOnly {
				infos = a.EnabledExtensions()
			}

			output := &ListExtensionsOutput{Extensions: make([]ExtensionItem, 0, len(infos))}
			for _, info := range infos {
				item := ExtensionItem{
					ID:      info.ID,
					Name:    info.Name,
					Version: info.Version,
					Type:    info.Type,
					Enabled: info.Enabled,
				}
				for _, p := range a.Permissions(info.ID) {
					if p.Granted {
						item.Permissions = append(item.Permissions, p.Permission)
					}
				}
				output.Extensions = append(output.Extensions, item)
			}
			return output, nil
		})
}

func registerValidateManifestTool(srv *mcp.Server, a *app.App) {
	srv.Tool("extkit_validate_manifest").
		Description("Validate an extension manifest.json. Useful for extension authors and CI pipelines.").
		ReadOnly().
		Handler(func(_ context.Context, in ValidateManifestInput) (*ValidateManifestOutput, error) {
			if err := ValidateValidateManifestInput(&in); err != nil {
				return nil, err
			}

			result, err := a.ValidateManifestFile(in.Path, in.StoreOrigin)
			output := &ValidateManifestOutput{Valid: err == nil}
			if result != nil && result.Manifest != nil {
				output.Name = result.Manifest.Name
				output.Version = result.Manifest.Version
				output.Permissions = result.Manifest.Permissions
				for _, issue := range result.DependencyIssues {
					output.DependencyIssues = append(output.DependencyIssues, issue.String())
				}
			}
			if err != nil {
				if extension.IsIOError(err) {
					return nil, err
				}
				output.Error = extension.Reason(err)
			}
			return output, nil
		})
}

func registerOutdatedTool(srv *mcp.Server, a *app.App) {
	srv.Tool("extkit_outdated").
		Description("List installed extensions that have a newer version in an enabled source.").
		ReadOnly().
		Handler(func(ctx context.Context, _ OutdatedInput) (*OutdatedOutput, error) {
			updates, err := a.Outdated(ctx)
			if err != nil {
				return nil, err
			}
			output := &OutdatedOutput{Updates: make([]UpdateItem, 0, len(updates))}
			for _, u := range updates {
				output.Updates = append(output.Updates, UpdateItem(u))
			}
			return output, nil
		})
}

func registerInstallTool(srv *mcp.Server, a *app.App) {
	srv.Tool("extkit_install").
		Description("Download, verify and install an extension from a store source. REQUIRES confirm=true for safety.").
		Destructive().
		Handler(func(ctx context.Context, in InstallInput) (*InstallOutput, error) {
			if err := ValidateInstallInput(&in); err != nil {
				return nil, err
			}
			if !in.Confirm {
				return &InstallOutput{
					Stage:   string(install.StageIdle),
					Message: "Set confirm=true to install " + in.ExtensionID,
				}, nil
			}

			report, err := a.Install(ctx, install.Request{
				SourceID:    in.SourceID,
				ExtensionID: in.ExtensionID,
				Disabled:    in.Disabled,
			})
			if err != nil {
				if stage := report.FailedStage(); stage != "" {
					return nil, fmt.Errorf("install failed during %s: %w", stage, err)
				}
				return nil, err
			}

			output := &InstallOutput{
				Installed: true,
				Stage:     string(report.Stage),
				Version:   report.Info.Version,
				Path:      report.Path,
			}
			for _, s := range report.Stages {
				output.Stages = append(output.Stages, string(s))
			}
			for _, issue := range report.DependencyIssues {
				output.DependencyIssues = append(output.DependencyIssues, issue.String())
			}
			return output, nil
		})
}

func sourceItem(s source.Source) SourceItem {
	return SourceItem{
		ID:       s.ID,
		Name:     s.Name,
		Type:     s.Type.String(),
		BaseURL:  s.BaseURL,
		Enabled:  s.Enabled,
		Priority: s.Priority,
	}
}

func searchItem(sourceID string, e store.Extension) SearchItem {
	return SearchItem{
		SourceID:      sourceID,
		ID:            e.ID,
		Name:          e.Name,
		Version:       e.Version,
		Author:        e.Author,
		Description:   e.Description,
		Type:          e.Type.String(),
		DownloadCount: e.DownloadCount,
		Rating:        e.Rating,
		Tags:          e.Tags,
	}
}
