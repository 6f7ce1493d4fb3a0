package app

import (
	"context"
	"crypto/md5" //nolint:gosec // catalog checksums are md5
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/felixgeelhaar/extkit/internal/adapters/metrics"
	"github.com/felixgeelhaar/extkit/internal/domain/config"
	"github.com/felixgeelhaar/extkit/internal/domain/extension"
	"github.com/felixgeelhaar/extkit/internal/domain/install"
	"github.com/felixgeelhaar/extkit/internal/domain/registry"
	"github.com/felixgeelhaar/extkit/internal/domain/source"
	"github.com/felixgeelhaar/extkit/internal/domain/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catalogServer serves a tiny catalog with one extension at a configurable
// version.
type catalogServer struct {
	*httptest.Server

	mu       sync.Mutex
	id       string
	version  string
	listHits int
}

func newCatalogServer(t *testing.T, id, version string) *catalogServer {
	t.Helper()

	c := &catalogServer{id: id, version: version}
	pkg := []byte("package " + id)
	sum := md5.Sum(pkg) //nolint:gosec // catalog checksum
	checksum := hex.EncodeToString(sum[:])

	c.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		version := c.version
		c.mu.Unlock()

		switch r.URL.Path {
		case "/extensions":
			c.mu.Lock()
			c.listHits++
			c.mu.Unlock()
			_ = json.NewEncoder(w).Encode([]store.Extension{{ID: c.id, Name: c.id, Version: version, Type: extension.TypeTheme}})
		case "/extensions/" + c.id:
			_ = json.NewEncoder(w).Encode(store.Details{
				Extension:   store.Extension{ID: c.id, Name: c.id, Version: version},
				ManifestURL: c.URL + "/" + c.id + "/manifest.json",
				PackageURL:  c.URL + "/" + c.id + "/pkg",
				Checksum:    checksum,
			})
		case "/" + c.id + "/manifest.json":
			_ = json.NewEncoder(w).Encode(extension.Manifest{
				Name:        c.id,
				Version:     version,
				Type:        extension.TypeTheme,
				EntryPoint:  "theme.css",
				Permissions: []string{"ui"},
			})
		case "/" + c.id + "/pkg":
			_, _ = w.Write(pkg)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(c.Close)
	return c
}

func (c *catalogServer) setVersion(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = v
}

func testConfig(t *testing.T, officialURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Store.OfficialURL = officialURL
	cfg.Paths.Sources = filepath.Join(dir, "sources.yaml")
	cfg.Paths.Registry = filepath.Join(dir, "registry.json")
	cfg.Paths.Extensions = filepath.Join(dir, "extensions")
	return cfg
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(t, ""))
	require.NoError(t, err)

	sources := a.Sources()
	require.Len(t, sources, 1)
	assert.Equal(t, source.ReservedID, sources[0].ID)
	assert.Equal(t, source.DefaultOfficialURL, sources[0].BaseURL)
	assert.Empty(t, a.Installed())
}

func TestSources_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(t, "https://official.example.com")

	a, err := New(ctx, cfg)
	require.NoError(t, err)

	added, err := a.AddSource(ctx, source.Source{
		Name:     "Mine",
		Type:     source.TypeCustom,
		BaseURL:  "https://catalog.example.org",
		Enabled:  true,
		Priority: 3,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)

	_, err = a.AddSource(ctx, source.Source{ID: "local", Name: "Local", Type: source.TypeCustom, BaseURL: "https://localhost:9000"})
	assert.True(t, extension.IsSecurityError(err))

	require.NoError(t, a.SetSourceEnabled(ctx, source.ReservedID, false))
	assert.True(t, extension.IsValidationError(a.RemoveSource(ctx, source.ReservedID)))
	require.NoError(t, a.RemoveSource(ctx, "never-added"))
	assert.True(t, extension.IsNotFound(a.SetSourceEnabled(ctx, "never-added", true)))

	reloaded, err := New(ctx, cfg)
	require.NoError(t, err)
	sources := reloaded.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, source.ReservedID, sources[0].ID)
	assert.False(t, sources[0].Enabled)
	assert.Equal(t, added, sources[1])

	require.NoError(t, reloaded.RemoveSource(ctx, added.ID))
	_, err = reloaded.Source(added.ID)
	assert.True(t, extension.IsNotFound(err))
}

func TestNew_ReservedURLPersists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(t, "https://official.example.com")
	a, err := New(ctx, cfg)
	require.NoError(t, err)

	s, err := a.Source(source.ReservedID)
	require.NoError(t, err)
	assert.Equal(t, "https://official.example.com", s.BaseURL)

	s.BaseURL = "https://mirror.example.com"
	s.Enabled = false
	require.NoError(t, a.UpdateSource(ctx, s))

	reloaded, err := New(ctx, cfg)
	require.NoError(t, err)
	got, err := reloaded.Source(source.ReservedID)
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example.com", got.BaseURL)
	assert.False(t, got.Enabled)
}

func TestNew_ReservedStaysOfficial(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "https://official.example.com")
	require.NoError(t, os.WriteFile(cfg.Paths.Sources, []byte(`sources:
  - id: default
    name: Official Store
    type: community
    base_url: https://mirror.example.com
    enabled: true
`), 0o600))

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	s, err := a.Source(source.ReservedID)
	require.NoError(t, err)
	assert.Equal(t, source.TypeOfficial, s.Type)
	assert.Equal(t, "https://mirror.example.com", s.BaseURL)
}

func TestRemoveSource_RollbackKeepsOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(t, "https://official.example.com")
	a, err := New(ctx, cfg)
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		_, err := a.AddSource(ctx, source.Source{ID: id, Name: id, Type: source.TypeCommunity, BaseURL: "https://" + id + ".example.com", Enabled: true, Priority: 2})
		require.NoError(t, err)
	}
	before := a.Sources()

	// A non-empty directory in place of the sources file makes saving fail.
	require.NoError(t, os.Remove(cfg.Paths.Sources))
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Paths.Sources, "blocker"), 0o755))

	require.Error(t, a.RemoveSource(ctx, "a"))
	assert.Equal(t, before, a.Sources())
}

func TestNew_SkipsInvalidPersistedSource(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "")
	require.NoError(t, os.WriteFile(cfg.Paths.Sources, []byte(`sources:
  - id: sneaky
    name: Sneaky
    type: custom
    base_url: http://192.168.0.0/16
    enabled: true
`), 0o600))

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Len(t, a.Sources(), 1)
}

func TestNew_CorruptSourcesFile(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "")
	require.NoError(t, os.WriteFile(cfg.Paths.Sources, []byte("sources: [oops"), 0o600))

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, config.IsUserError(err, config.ErrCodeConfigParse))
}

// switchStore keeps snapshots in memory and fails saves on demand.
type switchStore struct {
	mu   sync.Mutex
	snap *registry.Snapshot
	fail error
}

func (s *switchStore) Load(context.Context) (*registry.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return &registry.Snapshot{}, nil
	}
	return s.snap, nil
}

func (s *switchStore) Save(_ context.Context, snap *registry.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.snap = snap
	return nil
}

func (s *switchStore) failWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func TestInstall_SaveFailureRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	catalog := newCatalogServer(t, "crt", "1.0.0")
	cfg := testConfig(t, catalog.URL)
	regStore := &switchStore{}
	regStore.failWith(errors.New("disk full"))

	a, err := New(ctx, cfg, WithRegistryStore(regStore))
	require.NoError(t, err)

	_, err = a.Install(ctx, install.Request{ExtensionID: "crt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, a.Installed())
	assert.Empty(t, a.Permissions("crt"))
	assert.NoDirExists(t, filepath.Join(cfg.Paths.Extensions, "crt"))
}

func TestInstall_UpgradeSaveFailureKeepsPrevious(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	catalog := newCatalogServer(t, "crt", "1.0.0")
	cfg := testConfig(t, catalog.URL)
	regStore := &switchStore{}

	a, err := New(ctx, cfg, WithRegistryStore(regStore))
	require.NoError(t, err)
	first, err := a.Install(ctx, install.Request{ExtensionID: "crt"})
	require.NoError(t, err)
	require.NoError(t, a.SetEnabled(ctx, "crt", false))

	catalog.setVersion("1.1.0")
	regStore.failWith(errors.New("disk full"))
	report, err := a.Install(ctx, install.Request{ExtensionID: "crt"})
	require.Error(t, err)

	info, err := a.Extension("crt")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", info.Version)
	assert.False(t, info.Enabled)
	assert.FileExists(t, first.Path)
	assert.NoFileExists(t, report.Path)
}

func TestInstallLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	catalog := newCatalogServer(t, "crt", "1.0.0")
	cfg := testConfig(t, catalog.URL)
	m := metrics.New(nil)

	a, err := New(ctx, cfg, WithMetrics(m))
	require.NoError(t, err)

	report, err := a.Install(ctx, install.Request{ExtensionID: "crt"})
	require.NoError(t, err)
	assert.Equal(t, install.StageInstalled, report.Stage)
	assert.FileExists(t, report.Path)
	assert.InDelta(t, 1, testutil.ToFloat64(m.InstallsTotal.WithLabelValues("installed", "success")), 0)

	reloaded, err := New(ctx, cfg)
	require.NoError(t, err)
	info, err := reloaded.Extension("crt")
	require.NoError(t, err)
	assert.True(t, info.Enabled)
	assert.Equal(t, []extension.Permission{{ExtensionID: "crt", Permission: "ui", Granted: true}}, reloaded.Permissions("crt"))

	updates, err := reloaded.Outdated(ctx)
	require.NoError(t, err)
	assert.Empty(t, updates)

	catalog.setVersion("1.1.0")
	updates, err = reloaded.Outdated(ctx)
	require.NoError(t, err)
	assert.Equal(t, []install.Update{{ID: "crt", Installed: "1.0.0", Available: "1.1.0", SourceID: source.ReservedID}}, updates)

	require.NoError(t, reloaded.SetEnabled(ctx, "crt", false))
	assert.Empty(t, reloaded.EnabledExtensions())

	palette := "amber"
	require.NoError(t, reloaded.SetSetting(ctx, extension.Setting{ExtensionID: "crt", Key: "palette", Value: &palette}))
	assert.Equal(t, map[string]string{"palette": "amber"}, reloaded.Settings("crt"))

	require.NoError(t, reloaded.Uninstall(ctx, "crt"))
	assert.NoFileExists(t, report.Path)
	assert.Empty(t, reloaded.Installed())
	assert.True(t, extension.IsNotFound(reloaded.Uninstall(ctx, "crt")))

	final, err := New(ctx, cfg)
	require.NoError(t, err)
	assert.Empty(t, final.Installed())
}

func TestInstall_FailureLeavesNoState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	catalog := newCatalogServer(t, "crt", "1.0.0")
	cfg := testConfig(t, catalog.URL)

	a, err := New(ctx, cfg)
	require.NoError(t, err)

	_, err = a.Install(ctx, install.Request{ExtensionID: "missing"})
	require.Error(t, err)
	assert.True(t, extension.IsNetworkError(err))
	assert.Empty(t, a.Installed())
	assert.NoFileExists(t, cfg.Paths.Registry)
}

func TestSearch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	official := newCatalogServer(t, "crt", "1.0.0")
	community := newCatalogServer(t, "neon", "2.0.0")
	cfg := testConfig(t, official.URL)

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	_, err = a.AddSource(ctx, source.Source{ID: "community", Name: "Community", Type: source.TypeCommunity, BaseURL: community.URL, Enabled: true, Priority: 5})
	require.NoError(t, err)

	results, err := a.Search(ctx, SearchRequest{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, source.ReservedID, results[0].SourceID)
	assert.Equal(t, "crt", results[0].Extension.ID)
	assert.Equal(t, "community", results[1].SourceID)
	assert.Equal(t, "neon", results[1].Extension.ID)

	results, err = a.Search(ctx, SearchRequest{SourceID: "community"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "neon", results[0].Extension.ID)

	_, err = a.Search(ctx, SearchRequest{SourceID: "nope"})
	assert.True(t, extension.IsNotFound(err))

	details, err := a.Details(ctx, "community", "neon")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", details.Version)

	require.NoError(t, a.SetSourceEnabled(ctx, source.ReservedID, false))
	require.NoError(t, a.SetSourceEnabled(ctx, "community", false))
	_, err = a.Search(ctx, SearchRequest{})
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestSearchAndDetails_RequireQueryableSource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	catalog := newCatalogServer(t, "crt", "1.0.0")
	cfg := testConfig(t, catalog.URL)

	a, err := New(ctx, cfg)
	require.NoError(t, err)

	check := func(reason string) {
		t.Helper()
		_, err := a.Search(ctx, SearchRequest{SourceID: source.ReservedID})
		assert.True(t, extension.IsValidationError(err))
		assert.Equal(t, reason, extension.Reason(err))

		_, err = a.Details(ctx, source.ReservedID, "crt")
		assert.True(t, extension.IsValidationError(err))
		assert.Equal(t, reason, extension.Reason(err))
	}

	require.NoError(t, a.SetSourceEnabled(ctx, source.ReservedID, false))
	check("Source is disabled")

	s, err := a.Source(source.ReservedID)
	require.NoError(t, err)
	s.Enabled = true
	s.BaseURL = ""
	require.NoError(t, a.UpdateSource(ctx, s))
	check("Source has no base URL")

	catalog.mu.Lock()
	defer catalog.mu.Unlock()
	assert.Zero(t, catalog.listHits)
}

func TestValidateManifestFile(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(t, ""))
	require.NoError(t, err)

	write := func(content string) string {
		path := filepath.Join(t.TempDir(), "manifest.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	ok := write(`{"name":"neon","version":"1.0.0","type":"theme","entry_point":"theme.css","permissions":["ui"],"dependencies":{"base-theme":"^1.0.0"}}`)
	result, err := a.ValidateManifestFile(ok, true)
	require.NoError(t, err)
	assert.Equal(t, "neon", result.Manifest.Name)
	require.Len(t, result.DependencyIssues, 1)
	assert.Equal(t, "not installed", result.DependencyIssues[0].Reason)

	dangerous := write(`{"name":"neon","version":"1.0.0","entry_point":"index.js","permissions":["filesystem"]}`)
	_, err = a.ValidateManifestFile(dangerous, false)
	require.NoError(t, err)
	_, err = a.ValidateManifestFile(dangerous, true)
	assert.True(t, extension.IsSecurityError(err))

	_, err = a.ValidateManifestFile(write(`{"name":"neon"}`), false)
	assert.True(t, extension.IsValidationError(err))

	_, err = a.ValidateManifestFile(filepath.Join(t.TempDir(), "absent.json"), false)
	assert.True(t, extension.IsIOError(err))
}
