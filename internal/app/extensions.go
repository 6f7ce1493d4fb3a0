package app

import (
	"context"
	"slices"

	"github.com/felixgeelhaar/extkit/internal/domain/extension"
	"github.com/felixgeelhaar/extkit/internal/domain/install"
	"github.com/felixgeelhaar/extkit/internal/domain/manifest"
	"github.com/felixgeelhaar/extkit/internal/domain/registry"
	"github.com/felixgeelhaar/extkit/internal/ports"
)

// Install runs the install workflow and persists the registry on success.
// An empty SourceID selects the reserved source.
func (a *App) Install(ctx context.Context, req install.Request) (*install.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if req.SourceID == "" {
		req.SourceID = a.sources.ReservedID()
	}
	before := a.registry.Snapshot()
	stored, _ := a.artifacts.Versions(ctx, req.ExtensionID)

	report, err := a.installer.Install(ctx, req)
	if err != nil {
		return report, err
	}
	if err := a.saveRegistry(ctx); err != nil {
		a.rollbackInstall(ctx, report, before, stored)
		return report, err
	}
	return report, nil
}

// rollbackInstall restores the registry to before and removes the package
// the install added. Versions that were stored already are kept.
func (a *App) rollbackInstall(ctx context.Context, report *install.Report, before *registry.Snapshot, stored []string) {
	a.registry.Reset(before)

	id, version := report.Info.ID, report.Info.Version
	var err error
	switch {
	case len(stored) == 0:
		err = a.artifacts.Remove(ctx, id)
	case !slices.Contains(stored, version):
		err = a.artifacts.RemoveVersion(ctx, id, version)
	}
	if err != nil {
		a.warn(ctx, "failed to remove package after rollback", ports.F("extension", id), ports.Err(err))
	}
}

// Uninstall removes an installed extension and its stored packages.
func (a *App) Uninstall(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.installer.Uninstall(ctx, id); err != nil {
		return err
	}
	return a.saveRegistry(ctx)
}

// Installed lists installed extensions in installation order.
func (a *App) Installed() []extension.Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registry.All()
}

// EnabledExtensions lists enabled extensions.
func (a *App) EnabledExtensions() []extension.Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registry.Enabled()
}

// Extension returns the record for id.
func (a *App) Extension(id string) (extension.Info, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	info, ok := a.registry.Get(id)
	if !ok {
		return extension.Info{}, errExtensionNotFound(id)
	}
	return info, nil
}

// Permissions returns the permissions recorded for id.
func (a *App) Permissions(id string) []extension.Permission {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registry.Permissions(id)
}

// SetEnabled enables or disables an installed extension.
func (a *App) SetEnabled(ctx context.Context, id string, enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	previous, ok := a.registry.Get(id)
	if !ok {
		return errExtensionNotFound(id)
	}
	if err := a.registry.SetEnabled(id, enabled); err != nil {
		return err
	}
	if err := a.saveRegistry(ctx); err != nil {
		_ = a.registry.SetEnabled(id, previous.Enabled)
		return err
	}
	a.info(ctx, "extension state changed", ports.F("extension", id), ports.F("enabled", enabled))
	return nil
}

// SetSetting stores a per-extension setting. A nil value deletes it.
func (a *App) SetSetting(ctx context.Context, s extension.Setting) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.registry.SetSetting(s); err != nil {
		return err
	}
	return a.saveRegistry(ctx)
}

// Settings returns the settings of id.
func (a *App) Settings(id string) map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registry.Settings(id)
}

// Outdated reports installed extensions with newer catalog versions.
func (a *App) Outdated(ctx context.Context) ([]install.Update, error) {
	a.mu.Lock()
	sources := a.sources.List()
	installed := a.registry.All()
	a.mu.Unlock()

	return install.Outdated(ctx, a.client, sources, installed)
}

// CheckDependencies reports which of deps the installed set does not
// satisfy. deps maps extension ids to semver ranges.
func (a *App) CheckDependencies(deps map[string]string) []registry.DependencyIssue {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registry.CheckDependencies(deps)
}

// ValidationResult is the outcome of checking a manifest file.
type ValidationResult struct {
	Manifest         *extension.Manifest
	DependencyIssues []registry.DependencyIssue
}

// ValidateManifestFile parses and validates the manifest at path. With
// storeOrigin the stricter store rules apply as well. Dependency issues
// against the installed set are reported, not treated as failures.
func (a *App) ValidateManifestFile(path string, storeOrigin bool) (*ValidationResult, error) {
	m, err := manifest.ParseFile(path)
	if err != nil {
		return nil, err
	}
	if err := manifest.Validate(m); err != nil {
		return &ValidationResult{Manifest: m}, err
	}
	if storeOrigin {
		if err := manifest.ValidateStoreOrigin(m); err != nil {
			return &ValidationResult{Manifest: m}, err
		}
	}

	return &ValidationResult{Manifest: m, DependencyIssues: a.CheckDependencies(m.Dependencies)}, nil
}
