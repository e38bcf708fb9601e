// Package registry collects the typed extension points contributed by
// loaded units: modules, component renderers, and render-pipeline
// extensions.
package registry

import (
	"sort"
	"sync"

	"github.com/zot/modhost/api"
	"github.com/zot/modhost/internal/config"
)

type rendererEntry struct {
	renderer api.ComponentRenderer
	unit     string
}

// Extensions holds everything the loaded units registered. It is written
// during startup and by Lua hot reloads, and read on every render, so access
// is guarded.
type Extensions struct {
	config     *config.Config
	modules    []api.Module
	moduleUnit map[string]string // module name -> providing unit
	renderers  map[string]rendererEntry
	extensions []api.RenderExtension
	mu         sync.RWMutex
}

// NewExtensions creates an empty registry.
func NewExtensions(cfg *config.Config) *Extensions {
	return &Extensions{
		config:     cfg,
		moduleUnit: make(map[string]string),
		renderers:  make(map[string]rendererEntry),
	}
}

// Add merges one unit's registration. Duplicate module names and duplicate
// renderer types across units keep the first registration; the conflict is
// logged against both units.
func (e *Extensions) Add(unit string, reg api.Registration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, m := range reg.Modules {
		if owner, exists := e.moduleUnit[m.Name()]; exists {
			e.config.Log(0, "module %s from unit %s conflicts with unit %s, keeping first",
				m.Name(), unit, owner)
			continue
		}
		e.moduleUnit[m.Name()] = unit
		e.modules = append(e.modules, m)
	}

	for _, r := range reg.Renderers {
		if existing, exists := e.renderers[r.Type()]; exists {
			e.config.Log(0, "renderer type %s from unit %s conflicts with unit %s, keeping first",
				r.Type(), unit, existing.unit)
			continue
		}
		e.renderers[r.Type()] = rendererEntry{renderer: r, unit: unit}
	}

	e.extensions = append(e.extensions, reg.Extensions...)
	sort.SliceStable(e.extensions, func(i, j int) bool {
		return e.extensions[i].Order() < e.extensions[j].Order()
	})
}

// ReplaceUnit swaps in a reloaded unit's renderers: the unit's previous
// renderer types are dropped and the new ones installed, replacing any
// existing owner. Used by hot reload; modules and extensions are startup-only
// and are not replaced.
func (e *Extensions) ReplaceUnit(unit string, reg api.Registration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for typ, entry := range e.renderers {
		if entry.unit == unit {
			delete(e.renderers, typ)
		}
	}
	for _, r := range reg.Renderers {
		e.renderers[r.Type()] = rendererEntry{renderer: r, unit: unit}
	}
}

// Renderer returns the renderer registered for a component type.
func (e *Extensions) Renderer(componentType string) (api.ComponentRenderer, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.renderers[componentType]
	return entry.renderer, ok
}

// Renderers returns all registered renderers sorted by type.
func (e *Extensions) Renderers() []api.ComponentRenderer {
	e.mu.RLock()
	result := make([]api.ComponentRenderer, 0, len(e.renderers))
	for _, entry := range e.renderers {
		result = append(result, entry.renderer)
	}
	e.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].Type() < result[j].Type()
	})
	return result
}

// Modules returns the registered modules in registration order.
func (e *Extensions) Modules() []api.Module {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := make([]api.Module, len(e.modules))
	copy(result, e.modules)
	return result
}

// RenderExtensions returns the pipeline extensions in ascending order.
func (e *Extensions) RenderExtensions() []api.RenderExtension {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := make([]api.RenderExtension, len(e.extensions))
	copy(result, e.extensions)
	return result
}
