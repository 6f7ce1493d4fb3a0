package registryfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/extkit/internal/domain/extension"
	"github.com/felixgeelhaar/extkit/internal/domain/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore(filepath.Join(t.TempDir(), "state", "registry.json"))

	reg := registry.New()
	reg.Register(extension.Info{ID: "neon", Name: "Neon", Version: "1.0.0", Type: "theme", Enabled: true})
	reg.Register(extension.Info{ID: "igdb", Name: "IGDB", Version: "2.1.0", Type: "data_source"})
	require.NoError(t, reg.SetPermissions("igdb", []extension.Permission{{ExtensionID: "igdb", Permission: "network", Granted: true}}))
	key := "token"
	require.NoError(t, reg.SetSetting(extension.Setting{ExtensionID: "igdb", Key: "api_key", Value: &key}))

	snap := reg.Snapshot()
	require.NoError(t, store.Save(ctx, snap))

	_, err := os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, snap.SavedAt.Equal(loaded.SavedAt))
	assert.Equal(t, snap.Extensions, loaded.Extensions)
	assert.Equal(t, snap.Permissions, loaded.Permissions)
	assert.Equal(t, snap.Settings, loaded.Settings)

	restored := registry.Restore(loaded)
	assert.Equal(t, reg.All(), restored.All())
	assert.Equal(t, map[string]string{"api_key": "token"}, restored.Settings("igdb"))
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()

	snap, err := NewStore(filepath.Join(t.TempDir(), "registry.json")).Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Empty(t, snap.Extensions)
}

func TestStore_LoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		target  error
	}{
		{"malformed", `{"version": 1, "extensions": [`, ErrCorrupt},
		{"wrong shape", `{"extensions": {"id": "x"}}`, ErrCorrupt},
		{"newer version", `{"version": 99, "extensions": []}`, ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "registry.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := NewStore(path).Load(context.Background())
			require.ErrorIs(t, err, tt.target)
		})
	}
}

func TestStore_SaveNil(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, store.Save(context.Background(), nil))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": 1`)
}
