// Package registry tracks installed extensions and whether each is enabled.
package registry

import (
	"github.com/felixgeelhaar/extkit/internal/domain/extension"
)

// Registry is an in-memory collection of installed extension records keyed
// by id. It does no locking; callers serialize access.
type Registry struct {
	records     map[string]*extension.Info
	order       []string
	permissions map[string][]extension.Permission
	settings    map[string]map[string]*string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		records:     make(map[string]*extension.Info),
		permissions: make(map[string][]extension.Permission),
		settings:    make(map[string]map[string]*string),
	}
}

// Register stores info under info.ID, replacing any existing record.
func (r *Registry) Register(info extension.Info) {
	if _, exists := r.records[info.ID]; !exists {
		r.order = append(r.order, info.ID)
	}
	stored := info
	r.records[info.ID] = &stored
}

// Unregister removes id and its permissions and settings. Unknown ids are
// ignored.
func (r *Registry) Unregister(id string) {
	if _, ok := r.records[id]; !ok {
		return
	}
	delete(r.records, id)
	delete(r.permissions, id)
	delete(r.settings, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id string) (extension.Info, bool) {
	info, ok := r.records[id]
	if !ok {
		return extension.Info{}, false
	}
	return *info, true
}

// Mutable returns the stored record for in-place changes such as flipping
// Enabled. The pointer is only valid until the next Unregister of id.
func (r *Registry) Mutable(id string) (*extension.Info, bool) {
	info, ok := r.records[id]
	return info, ok
}

// SetEnabled flips the enabled flag of id.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	info, ok := r.Mutable(id)
	if !ok {
		return &extension.NotFoundError{Kind: "extension", ID: id}
	}
	info.Enabled = enabled
	return nil
}

// All returns every record in registration order.
func (r *Registry) All() []extension.Info {
	out := make([]extension.Info, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.records[id])
	}
	return out
}

// Enabled returns the enabled records in registration order.
func (r *Registry) Enabled() []extension.Info {
	var out []extension.Info
	for _, id := range r.order {
		if info := r.records[id]; info.Enabled {
			out = append(out, *info)
		}
	}
	return out
}

// Len returns the number of records.
func (r *Registry) Len() int {
	return len(r.records)
}

// SetPermissions replaces the permission records of a registered id.
func (r *Registry) SetPermissions(id string, perms []extension.Permission) error {
	if _, ok := r.records[id]; !ok {
		return &extension.NotFoundError{Kind: "extension", ID: id}
	}
	r.permissions[id] = append([]extension.Permission(nil), perms...)
	return nil
}

// Permissions returns the permission records of id.
func (r *Registry) Permissions(id string) []extension.Permission {
	return append([]extension.Permission(nil), r.permissions[id]...)
}

// SetSetting stores a setting for a registered extension. A nil value
// clears it.
func (r *Registry) SetSetting(s extension.Setting) error {
	if _, ok := r.records[s.ExtensionID]; !ok {
		return &extension.NotFoundError{Kind: "extension", ID: s.ExtensionID}
	}
	if s.Value == nil {
		delete(r.settings[s.ExtensionID], s.Key)
		return nil
	}
	if r.settings[s.ExtensionID] == nil {
		r.settings[s.ExtensionID] = make(map[string]*string)
	}
	v := *s.Value
	r.settings[s.ExtensionID][s.Key] = &v
	return nil
}

// Settings returns the stored settings of id as a plain map.
func (r *Registry) Settings(id string) map[string]string {
	out := make(map[string]string, len(r.settings[id]))
	for k, v := range r.settings[id] {
		out[k] = *v
	}
	return out
}
