package app

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/extkit/internal/domain/source"
	"github.com/felixgeelhaar/extkit/internal/ports"
	"github.com/google/uuid"
)

// Sources lists configured sources by priority.
func (a *App) Sources() []source.Source {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sources.List()
}

// Source returns the source with id.
func (a *App) Source(id string) (source.Source, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sources.Get(id)
	if !ok {
		return source.Source{}, errSourceNotFound(id)
	}
	return s, nil
}

// AddSource validates and stores s. An empty id is replaced with a random
// UUID. The added source is returned.
func (a *App) AddSource(ctx context.Context, s source.Source) (source.Source, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if strings.TrimSpace(s.ID) == "" {
		s.ID = uuid.NewString()
	}
	if err := a.sources.Add(s); err != nil {
		return source.Source{}, err
	}
	if err := a.saveSources(ctx); err != nil {
		_ = a.sources.Remove(s.ID)
		return source.Source{}, err
	}
	a.info(ctx, "source added", ports.F("source", s.ID), ports.F("type", s.Type.String()))
	return s, nil
}

// UpdateSource replaces an existing source.
func (a *App) UpdateSource(ctx context.Context, s source.Source) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	previous, ok := a.sources.Get(s.ID)
	if !ok {
		return errSourceNotFound(s.ID)
	}
	if err := a.sources.Update(s); err != nil {
		return err
	}
	if err := a.saveSources(ctx); err != nil {
		_ = a.sources.Update(previous)
		return err
	}
	a.info(ctx, "source updated", ports.F("source", s.ID))
	return nil
}

// SetSourceEnabled enables or disables a source.
func (a *App) SetSourceEnabled(ctx context.Context, id string, enabled bool) error {
	a.mu.Lock()
	s, ok := a.sources.Get(id)
	a.mu.Unlock()
	if !ok {
		return errSourceNotFound(id)
	}
	s.Enabled = enabled
	return a.UpdateSource(ctx, s)
}

// RemoveSource deletes a source. The reserved source cannot be removed;
// unknown ids are ignored.
func (a *App) RemoveSource(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, existed := a.sources.Get(id)
	state := a.sources.State()
	if err := a.sources.Remove(id); err != nil {
		return err
	}
	if !existed {
		return nil
	}
	if err := a.saveSources(ctx); err != nil {
		a.sources.Restore(state)
		return err
	}
	a.info(ctx, "source removed", ports.F("source", id))
	return nil
}
