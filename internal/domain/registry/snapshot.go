package registry

import (
	"context"
	"sort"
	"time"

	"github.com/felixgeelhaar/extkit/internal/domain/extension"
)

// Snapshot is the persisted form of a registry.
type Snapshot struct {
	SavedAt     time.Time              `json:"saved_at"`
	Extensions  []extension.Info       `json:"extensions"`
	Permissions []extension.Permission `json:"permissions,omitempty"`
	Settings    []extension.Setting    `json:"settings,omitempty"`
}

// Store persists registry snapshots.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// Snapshot captures the registry contents in registration order.
func (r *Registry) Snapshot() *Snapshot {
	snap := &Snapshot{
		SavedAt:    time.Now().UTC(),
		Extensions: r.All(),
	}
	for _, id := range r.order {
		snap.Permissions = append(snap.Permissions, r.permissions[id]...)

		keys := make([]string, 0, len(r.settings[id]))
		for k := range r.settings[id] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := *r.settings[id][k]
			snap.Settings = append(snap.Settings, extension.Setting{ExtensionID: id, Key: k, Value: &v})
		}
	}
	return snap
}

// Restore builds a registry from snap.
func Restore(snap *Snapshot) *Registry {
	r := New()
	r.Reset(snap)
	return r
}

// Reset replaces the registry contents with snap in place. Permissions and
// settings for ids that are not in the snapshot are dropped.
func (r *Registry) Reset(snap *Snapshot) {
	r.records = make(map[string]*extension.Info)
	r.order = nil
	r.permissions = make(map[string][]extension.Permission)
	r.settings = make(map[string]map[string]*string)
	if snap == nil {
		return
	}
	for _, info := range snap.Extensions {
		r.Register(info)
	}
	for _, p := range snap.Permissions {
		if _, ok := r.records[p.ExtensionID]; ok {
			r.permissions[p.ExtensionID] = append(r.permissions[p.ExtensionID], p)
		}
	}
	for _, s := range snap.Settings {
		_ = r.SetSetting(s)
	}
}
