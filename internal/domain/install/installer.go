// Package install drives an extension from catalog entry to registry
// record: resolve the source, fetch and check the manifest, download and
// verify the package, validate, store the artifact and register it.
package install

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/extkit/internal/domain/extension"
	"github.com/felixgeelhaar/extkit/internal/domain/manifest"
	"github.com/felixgeelhaar/extkit/internal/domain/registry"
	"github.com/felixgeelhaar/extkit/internal/domain/source"
	"github.com/felixgeelhaar/extkit/internal/domain/store"
	"github.com/felixgeelhaar/extkit/internal/ports"
	"github.com/felixgeelhaar/statekit"
)

// Catalog is the subset of store.Client the installer needs.
type Catalog interface {
	FetchExtensionDetails(ctx context.Context, baseURL, id string) (*store.Details, error)
	DownloadManifest(ctx context.Context, manifestURL string) (*extension.Manifest, error)
	DownloadExtension(ctx context.Context, packageURL, expectedChecksum string) ([]byte, error)
}

// Sources resolves a source id. *source.Manager satisfies it.
type Sources interface {
	Get(id string) (source.Source, bool)
}

// ArtifactStore keeps verified package bytes.
type ArtifactStore interface {
	Save(ctx context.Context, id, version string, data []byte) (string, error)
	Remove(ctx context.Context, id string) error
}

// Observer receives the outcome of each install.
type Observer interface {
	ObserveInstall(stage Stage, err error)
}

// Request identifies what to install.
type Request struct {
	SourceID    string
	ExtensionID string
	// Disabled registers the extension without enabling it.
	Disabled bool
}

// Report describes one install attempt.
type Report struct {
	ExtensionID string
	SourceID    string
	Stage       Stage
	Stages      []Stage
	Details     *store.Details
	Manifest    *extension.Manifest
	Info        extension.Info
	Path        string
	// DependencyIssues lists unmet manifest dependencies. They are reported,
	// not enforced.
	DependencyIssues []registry.DependencyIssue
	Err              error
}

// FailedStage returns the stage that was active when the workflow failed,
// or the empty Stage if it did not fail.
func (r *Report) FailedStage() Stage {
	n := len(r.Stages)
	if n < 2 || r.Stages[n-1] != StageFailed {
		return ""
	}
	return r.Stages[n-2]
}

// Installer runs the install workflow. It mutates the registry and so must
// be serialized by the caller along with every other registry access.
type Installer struct {
	sources   Sources
	catalog   Catalog
	registry  *registry.Registry
	artifacts ArtifactStore
	logger    ports.Logger
	observer  Observer
}

// Option configures an Installer.
type Option func(*Installer)

// WithLogger logs stage transitions and failures.
func WithLogger(logger ports.Logger) Option {
	return func(i *Installer) { i.logger = logger }
}

// WithObserver reports install outcomes.
func WithObserver(o Observer) Option {
	return func(i *Installer) { i.observer = o }
}

// NewInstaller creates an installer.
func NewInstaller(sources Sources, catalog Catalog, reg *registry.Registry, artifacts ArtifactStore, opts ...Option) *Installer {
	i := &Installer{
		sources:   sources,
		catalog:   catalog,
		registry:  reg,
		artifacts: artifacts,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// run tracks one workflow execution.
type run struct {
	ctx    context.Context
	interp *statekit.Interpreter[machineContext]
	report *Report
	logger ports.Logger
}

func (r *run) advance(event string) {
	r.interp.Send(statekit.Event{Type: statekit.EventType(event)})
	r.record()
}

func (r *run) fail(err error) error {
	r.interp.Send(statekit.Event{Type: EventFail, Payload: err})
	r.record()
	if r.logger != nil {
		r.logger.Warn(r.ctx, "install failed", ports.F("stage", string(r.report.FailedStage())), ports.Err(err))
	}
	return err
}

func (r *run) record() {
	stage := Stage(r.interp.State().Value)
	r.report.Stage = stage
	r.report.Stages = append(r.report.Stages, stage)
	if r.logger != nil {
		r.logger.Debug(r.ctx, "install stage", ports.F("stage", string(stage)))
	}
}

// Install runs the workflow for req. Any failure is terminal: nothing is
// registered and no artifact is kept. The report is returned in both cases.
func (i *Installer) Install(ctx context.Context, req Request) (*Report, error) {
	report := &Report{ExtensionID: req.ExtensionID, SourceID: req.SourceID}
	interp, err := buildMachine(report)
	if err != nil {
		return report, fmt.Errorf("failed to build install workflow: %w", err)
	}
	interp.Start()
	defer interp.Stop()

	r := &run{ctx: ctx, interp: interp, report: report}
	if i.logger != nil {
		r.logger = i.logger.With(ports.F("extension", req.ExtensionID), ports.F("source", req.SourceID))
	}
	r.record()

	err = i.execute(r, req)
	if i.observer != nil {
		stage := report.Stage
		if err != nil {
			stage = report.FailedStage()
		}
		i.observer.ObserveInstall(stage, err)
	}
	if err != nil {
		return report, err
	}
	if r.logger != nil {
		r.logger.Info(ctx, "installed", ports.F("version", report.Info.Version), ports.F("path", report.Path))
	}
	return report, nil
}

func (i *Installer) execute(r *run, req Request) error {
	ctx := r.ctx

	r.advance(EventResolve)
	src, ok := i.sources.Get(req.SourceID)
	if !ok {
		return r.fail(&extension.NotFoundError{Kind: "source", ID: req.SourceID})
	}
	if err := source.CheckQueryable(src); err != nil {
		return r.fail(err)
	}

	r.advance(EventFetch)
	details, err := i.catalog.FetchExtensionDetails(ctx, src.BaseURL, req.ExtensionID)
	if err != nil {
		return r.fail(err)
	}
	if details.ID != "" && details.ID != req.ExtensionID {
		return r.fail(&extension.SecurityError{Reason: "Catalog returned a different extension: " + details.ID})
	}
	r.report.Details = details
	m, err := i.catalog.DownloadManifest(ctx, details.ManifestURL)
	if err != nil {
		return r.fail(err)
	}

	r.advance(EventDownload)
	data, err := i.catalog.DownloadExtension(ctx, details.PackageURL, details.Checksum)
	if err != nil {
		return r.fail(err)
	}

	r.advance(EventValidate)
	if err := manifest.Validate(m); err != nil {
		return r.fail(err)
	}
	r.report.Manifest = m
	r.report.DependencyIssues = i.registry.CheckDependencies(m.Dependencies)
	if r.logger != nil {
		for _, issue := range r.report.DependencyIssues {
			r.logger.Warn(ctx, "unmet dependency", ports.F("dependency", issue.String()))
		}
	}

	id := req.ExtensionID

	r.advance(EventRegister)
	path, err := i.artifacts.Save(ctx, id, m.Version, data)
	if err != nil {
		return r.fail(fmt.Errorf("failed to store package: %w", err))
	}
	r.report.Path = path

	info := m.Info(id, !req.Disabled)
	i.registry.Register(info)
	perms := make([]extension.Permission, 0, len(m.Permissions))
	for _, p := range m.Permissions {
		perms = append(perms, extension.Permission{ExtensionID: info.ID, Permission: p, Granted: true})
	}
	_ = i.registry.SetPermissions(info.ID, perms)
	r.report.Info = info

	r.advance(EventDone)
	return nil
}

// Uninstall removes the stored artifact and the registry record for id.
func (i *Installer) Uninstall(ctx context.Context, id string) error {
	if _, ok := i.registry.Get(id); !ok {
		return &extension.NotFoundError{Kind: "extension", ID: id}
	}
	if err := i.artifacts.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to remove package: %w", err)
	}
	i.registry.Unregister(id)
	if i.logger != nil {
		i.logger.Info(ctx, "uninstalled", ports.F("extension", id))
	}
	return nil
}
