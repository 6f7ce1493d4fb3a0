package registry

import (
	"testing"

	"github.com/felixgeelhaar/extkit/internal/domain/extension"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func info(id string, enabled bool) extension.Info {
	return extension.Info{ID: id, Name: id, Version: "1.0.0", Type: "theme", Enabled: enabled}
}

func ids(infos []extension.Info) []string {
	out := make([]string, len(infos))
	for i, in := range infos {
		out[i] = in.ID
	}
	return out
}

func TestRegistry_AllAndEnabled(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register(info("a", true))
	r.Register(info("b", false))

	assert.Len(t, r.All(), 2)
	assert.Equal(t, []string{"a"}, ids(r.Enabled()))
}

func TestRegistry_ReRegisterDisables(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register(info("a", true))
	require.Equal(t, []string{"a"}, ids(r.Enabled()))

	r.Register(info("a", false))
	assert.Empty(t, r.Enabled())
	assert.Len(t, r.All(), 1)
}

func TestRegistry_RegisterStoresExactly(t *testing.T) {
	t.Parallel()

	r := New()
	in := extension.Info{ID: "x", Name: "X", Version: "not-semver", Type: "something-else"}
	r.Register(in)

	got, ok := r.Get("x")
	require.True(t, ok)
	assert.Equal(t, in, got)
}

func TestRegistry_UpsertKeepsPosition(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register(info("a", true))
	r.Register(info("b", true))
	r.Register(info("c", true))

	updated := info("a", true)
	updated.Version = "2.0.0"
	r.Register(updated)

	assert.Equal(t, []string{"a", "b", "c"}, ids(r.All()))
	got, _ := r.Get("a")
	assert.Equal(t, "2.0.0", got.Version)
}

func TestRegistry_Unregister(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register(info("a", true))
	r.Register(info("b", true))

	r.Unregister("a")
	_, ok := r.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, ids(r.All()))

	r.Unregister("a")
	r.Unregister("never")
	assert.Equal(t, 1, r.Len())

	r.Register(info("a", true))
	assert.Equal(t, []string{"b", "a"}, ids(r.All()))
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register(info("a", true))

	got, _ := r.Get("a")
	got.Enabled = false

	again, _ := r.Get("a")
	assert.True(t, again.Enabled)

	all := r.All()
	all[0].Name = "changed"
	again, _ = r.Get("a")
	assert.Equal(t, "a", again.Name)
}

func TestRegistry_Mutable(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register(info("a", true))

	m, ok := r.Mutable("a")
	require.True(t, ok)
	m.Enabled = false
	m.Description = "edited in place"

	got, _ := r.Get("a")
	assert.False(t, got.Enabled)
	assert.Equal(t, "edited in place", got.Description)
	assert.Empty(t, r.Enabled())

	_, ok = r.Mutable("missing")
	assert.False(t, ok)
}

func TestRegistry_SetEnabled(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register(info("a", false))

	require.NoError(t, r.SetEnabled("a", true))
	assert.Equal(t, []string{"a"}, ids(r.Enabled()))

	err := r.SetEnabled("missing", true)
	assert.True(t, extension.IsNotFound(err))
}

func TestRegistry_PermissionsAndSettings(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register(info("a", true))

	perms := []extension.Permission{{ExtensionID: "a", Permission: "network", Granted: true}}
	require.NoError(t, r.SetPermissions("a", perms))
	assert.Equal(t, perms, r.Permissions("a"))
	assert.True(t, extension.IsNotFound(r.SetPermissions("b", perms)))

	v := "dark"
	require.NoError(t, r.SetSetting(extension.Setting{ExtensionID: "a", Key: "palette", Value: &v}))
	assert.Equal(t, map[string]string{"palette": "dark"}, r.Settings("a"))

	require.NoError(t, r.SetSetting(extension.Setting{ExtensionID: "a", Key: "palette"}))
	assert.Empty(t, r.Settings("a"))
	assert.True(t, extension.IsNotFound(r.SetSetting(extension.Setting{ExtensionID: "b", Key: "k", Value: &v})))

	require.NoError(t, r.SetSetting(extension.Setting{ExtensionID: "a", Key: "palette", Value: &v}))
	r.Unregister("a")
	assert.Empty(t, r.Permissions("a"))
	assert.Empty(t, r.Settings("a"))
}

func TestSnapshotRestore(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register(info("b", false))
	r.Register(info("a", true))
	require.NoError(t, r.SetPermissions("a", []extension.Permission{{ExtensionID: "a", Permission: "ui", Granted: true}}))
	for _, kv := range [][2]string{{"z", "1"}, {"m", "2"}} {
		v := kv[1]
		require.NoError(t, r.SetSetting(extension.Setting{ExtensionID: "a", Key: kv[0], Value: &v}))
	}

	snap := r.Snapshot()
	assert.Equal(t, []string{"b", "a"}, ids(snap.Extensions))
	require.Len(t, snap.Settings, 2)
	assert.Equal(t, "m", snap.Settings[0].Key)
	assert.False(t, snap.SavedAt.IsZero())

	snap.Permissions = append(snap.Permissions, extension.Permission{ExtensionID: "ghost", Permission: "ui"})

	restored := Restore(snap)
	assert.Equal(t, r.All(), restored.All())
	assert.Equal(t, r.Permissions("a"), restored.Permissions("a"))
	assert.Empty(t, restored.Permissions("ghost"))
	assert.Equal(t, map[string]string{"z": "1", "m": "2"}, restored.Settings("a"))

	assert.Equal(t, 0, Restore(nil).Len())
}

func TestRegistry_ResetInPlace(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register(info("a", true))
	before := r.Snapshot()

	r.Register(info("b", true))
	require.NoError(t, r.SetPermissions("b", []extension.Permission{{ExtensionID: "b", Permission: "network", Granted: true}}))
	require.NoError(t, r.SetEnabled("a", false))

	r.Reset(before)
	assert.Equal(t, []extension.Info{info("a", true)}, r.All())
	assert.Empty(t, r.Permissions("b"))

	r.Reset(nil)
	assert.Equal(t, 0, r.Len())
}

func TestCheckDependencies(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register(extension.Info{ID: "http-helpers", Name: "HTTP Helpers", Version: "1.4.2", Enabled: true})
	r.Register(extension.Info{ID: "cover-cache", Name: "cover-cache", Version: "0.9.0", Enabled: true})
	r.Register(extension.Info{ID: "legacy", Name: "Legacy", Version: "latest", Enabled: true})

	issues := r.CheckDependencies(map[string]string{
		"http-helpers": "^1.2.0",
		"cover-cache":  ">=1.0.0",
		"missing":      "1.x",
		"legacy":       "^1.0.0",
		"HTTP Helpers": "~1.4",
		"broken-range": "",
	})

	require.Len(t, issues, 4)
	assert.Equal(t, "broken-range", issues[0].Name)
	assert.Equal(t, "not installed", issues[0].Reason)
	assert.Equal(t, "cover-cache", issues[1].Name)
	assert.Equal(t, "0.9.0", issues[1].Installed)
	assert.Contains(t, issues[1].Reason, "does not satisfy")
	assert.Equal(t, "legacy", issues[2].Name)
	assert.Equal(t, "installed version is not semver", issues[2].Reason)
	assert.Equal(t, "missing", issues[3].Name)
	assert.Equal(t, "missing 1.x: not installed", issues[3].String())

	assert.Empty(t, r.CheckDependencies(nil))
}

func TestCheckDependencies_InvalidRange(t *testing.T) {
	t.Parallel()

	r := New()
	r.Register(extension.Info{ID: "a", Name: "a", Version: "1.0.0"})

	issues := r.CheckDependencies(map[string]string{"a": "not a range!"})
	require.Len(t, issues, 1)
	assert.Equal(t, "invalid version range", issues[0].Reason)
}
