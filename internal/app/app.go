// Package app wires configuration, persistence and the extension domain into
// the operations exposed by the CLI and the MCP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/felixgeelhaar/extkit/internal/adapters/artifacts"
	"github.com/felixgeelhaar/extkit/internal/adapters/metrics"
	"github.com/felixgeelhaar/extkit/internal/adapters/registryfile"
	"github.com/felixgeelhaar/extkit/internal/adapters/sourcefile"
	"github.com/felixgeelhaar/extkit/internal/domain/config"
	"github.com/felixgeelhaar/extkit/internal/domain/extension"
	"github.com/felixgeelhaar/extkit/internal/domain/install"
	"github.com/felixgeelhaar/extkit/internal/domain/registry"
	"github.com/felixgeelhaar/extkit/internal/domain/source"
	"github.com/felixgeelhaar/extkit/internal/domain/store"
	"github.com/felixgeelhaar/extkit/internal/ports"
)

// App is the extkit application. All methods are safe for concurrent use;
// operations that touch sources or the registry are serialized.
type App struct {
	mu sync.Mutex

	cfg         *config.Config
	logger      ports.Logger
	metrics     *metrics.Metrics
	httpClient  *http.Client
	sourceRepo  *sourcefile.Repository
	sourcesPath string
	registry    *registry.Registry
	regStore    registry.Store
	sources     *source.Manager
	client      *store.Client
	artifacts   *artifacts.Store
	installer   *install.Installer
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger. Without it the App logs nothing.
func WithLogger(logger ports.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithMetrics records store and install activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithHTTPClient overrides the HTTP client used for catalog requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) { a.httpClient = hc }
}

// WithRegistryStore overrides where the registry is persisted.
func WithRegistryStore(s registry.Store) Option {
	return func(a *App) { a.regStore = s }
}

// New loads persisted sources and registry state and wires the services.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	a := &App{
		cfg:         cfg,
		sourceRepo:  sourcefile.NewRepository(),
		sourcesPath: config.ExpandPath(cfg.Paths.Sources),
		artifacts:   artifacts.NewStore(config.ExpandPath(cfg.Paths.Extensions)),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.regStore == nil {
		a.regStore = registryfile.NewStore(config.ExpandPath(cfg.Paths.Registry))
	}

	if err := a.loadSources(ctx); err != nil {
		return nil, err
	}
	if err := a.loadRegistry(ctx); err != nil {
		return nil, err
	}

	var clientOpts []store.ClientOption
	var installOpts []install.Option
	if a.logger != nil {
		clientOpts = append(clientOpts, store.WithLogger(a.logger))
		installOpts = append(installOpts, install.WithLogger(a.logger))
	}
	if a.metrics != nil {
		clientOpts = append(clientOpts, store.WithObserver(a.metrics))
		installOpts = append(installOpts, install.WithObserver(a.metrics))
	}
	if a.httpClient != nil {
		clientOpts = append(clientOpts, store.WithHTTPClient(a.httpClient))
	}
	a.client = store.NewClient(cfg.ClientConfig(), clientOpts...)
	a.installer = install.NewInstaller(a.sources, a.client, a.registry, a.artifacts, installOpts...)

	return a, nil
}

// loadSources seeds the manager from policy and overlays the sources file.
// The configured official URL only seeds the reserved entry; once the entry
// is persisted its stored URL wins, but it always stays official. Persisted
// entries that no longer pass validation are skipped with a warning.
func (a *App) loadSources(ctx context.Context) error {
	policy := a.cfg.SourcePolicy()
	a.sources = source.NewManager(policy)

	persisted, err := a.sourceRepo.Load(ctx, a.sourcesPath)
	if err != nil {
		return &config.UserError{
			Code:       config.ErrCodeConfigParse,
			Message:    "cannot load sources file",
			Context:    a.sourcesPath,
			Suggestion: "Fix or remove the file; the official source is always available.",
			Underlying: err,
		}
	}

	for _, s := range persisted {
		apply := a.sources.Add
		if s.ID == policy.Reserved.ID {
			s.Type = policy.Reserved.Type
			apply = a.sources.Update
		}
		if err := apply(s); err != nil {
			a.warn(ctx, "skipping persisted source", ports.F("source", s.ID), ports.Err(err))
		}
	}
	return nil
}

func (a *App) loadRegistry(ctx context.Context) error {
	snap, err := a.regStore.Load(ctx)
	if err != nil {
		return &config.UserError{
			Code:       config.ErrCodeConfigParse,
			Message:    "cannot load extension registry",
			Suggestion: "Restore the registry file from a backup or remove it to start empty.",
			Underlying: err,
		}
	}
	a.registry = registry.Restore(snap)
	return nil
}

func (a *App) saveSources(ctx context.Context) error {
	if err := a.sourceRepo.Save(ctx, a.sourcesPath, a.sources.List()); err != nil {
		return fmt.Errorf("failed to persist sources: %w", err)
	}
	return nil
}

func (a *App) saveRegistry(ctx context.Context) error {
	if err := a.regStore.Save(ctx, a.registry.Snapshot()); err != nil {
		return fmt.Errorf("failed to persist registry: %w", err)
	}
	return nil
}

func (a *App) info(ctx context.Context, msg string, fields ...ports.Field) {
	if a.logger != nil {
		a.logger.Info(ctx, msg, fields...)
	}
}

func (a *App) warn(ctx context.Context, msg string, fields ...ports.Field) {
	if a.logger != nil {
		a.logger.Warn(ctx, msg, fields...)
	}
}

// Config returns the configuration the App was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Metrics returns the metrics collector, or nil.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Client returns the store client.
func (a *App) Client() *store.Client {
	return a.client
}

// errSourceNotFound builds the error returned for unknown source ids.
func errSourceNotFound(id string) error {
	return &extension.NotFoundError{Kind: "source", ID: id}
}

// errExtensionNotFound builds the error returned for unknown extension ids.
func errExtensionNotFound(id string) error {
	return &extension.NotFoundError{Kind: "extension", ID: id}
}

// ErrNoSources is returned by searches when no enabled source has a URL.
var ErrNoSources = errors.New("no enabled sources to query")
