package extension

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
)

// Context is what the host hands an extension when initializing it.
type Context struct {
	// Dir is the directory the extension package was unpacked into.
	Dir string
	// Settings are the stored settings for the extension.
	Settings map[string]string
}

// Extension is the capability set every extension kind implements. This
// module produces validated manifests and registry records; it never calls
// these methods itself.
type Extension interface {
	Initialize(ctx context.Context, ec *Context) error
	Shutdown(ctx context.Context) error
	HandleHook(ctx context.Context, hook string, params json.RawMessage) (json.RawMessage, error)
	Manifest() *Manifest
	Type() Type
	ID() string
}

// ErrNilExtension indicates a nil extension was passed to Host.Attach.
var ErrNilExtension = errors.New("extension cannot be nil")

// Host is a keyed table of running extension handles.
type Host struct {
	mu      sync.RWMutex
	handles map[string]Extension
}

// NewHost creates an empty handle table.
func NewHost() *Host {
	return &Host{handles: make(map[string]Extension)}
}

// Attach adds ext under its ID, replacing any previous handle.
func (h *Host) Attach(ext Extension) error {
	if ext == nil {
		return ErrNilExtension
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handles[ext.ID()] = ext
	return nil
}

// Detach removes the handle for id. Unknown ids are ignored.
func (h *Host) Detach(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.handles, id)
}

// Get returns the handle for id.
func (h *Host) Get(id string) (Extension, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ext, ok := h.handles[id]
	return ext, ok
}

// IDs returns the attached ids in sorted order.
func (h *Host) IDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.handles))
	for id := range h.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispatch calls HandleHook on the extension registered under id.
func (h *Host) Dispatch(ctx context.Context, id, hook string, params json.RawMessage) (json.RawMessage, error) {
	ext, ok := h.Get(id)
	if !ok {
		return nil, &NotFoundError{Kind: "extension", ID: id}
	}
	return ext.HandleHook(ctx, hook, params)
}

// ShutdownAll shuts down every attached extension and detaches it. All
// extensions are visited; the errors are joined.
func (h *Host) ShutdownAll(ctx context.Context) error {
	var errs []error
	for _, id := range h.IDs() {
		ext, ok := h.Get(id)
		if !ok {
			continue
		}
		if err := ext.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		h.Detach(id)
	}
	return errors.Join(errs...)
}
