// Package plugin discovers and loads extension units from the plugin
// directory. Two unit formats are supported: Go shared objects built with
// -buildmode=plugin, and Lua scripts. A failure loading one unit never
// stops the scan; each discovered file gets exactly one health outcome.
package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"
	"sync"

	"github.com/zot/modhost/api"
	"github.com/zot/modhost/internal/config"
	"github.com/zot/modhost/internal/health"
	"github.com/zot/modhost/internal/luaext"
	"github.com/zot/modhost/internal/registry"
)

// Loader manages extension-unit discovery and loading.
type Loader struct {
	config     *config.Config
	health     *health.Monitor
	extensions *registry.Extensions
	units      map[string]*loadedUnit
	mu         sync.Mutex
}

// loadedUnit records a successfully loaded unit for the process lifetime.
type loadedUnit struct {
	name string
	path string
	lua  *luaext.Unit // nil for shared objects
}

// NewLoader creates a loader feeding the given extension registry.
func NewLoader(cfg *config.Config, monitor *health.Monitor, extensions *registry.Extensions) *Loader {
	return &Loader{
		config:     cfg,
		health:     monitor,
		extensions: extensions,
		units:      make(map[string]*loadedUnit),
	}
}

// UnitName derives a unit identifier from its file path.
func UnitName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadAll scans the plugin directory, creating it if absent, and attempts to
// load every unit found. Individual load failures are recorded and skipped;
// the returned error covers only the directory itself.
func (l *Loader) LoadAll() error {
	dir := l.config.Plugins.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create plugin directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read plugin directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".so", ".lua":
			l.LoadUnit(filepath.Join(dir, entry.Name()))
		}
	}

	l.mu.Lock()
	count := len(l.units)
	l.mu.Unlock()
	l.config.Log(0, "loaded %d extension units from %s", count, dir)
	return nil
}

// LoadUnit attempts to load a single unit and records the outcome. Never
// returns an error: failures are contained here.
func (l *Loader) LoadUnit(path string) {
	name := UnitName(path)

	if l.disabled(name) {
		l.config.Log(0, "unit %s is disabled, skipping", name)
		l.health.RecordDisabled(name)
		return
	}

	l.config.Log(1, "loading unit %s from %s", name, path)
	reg, luaUnit, err := l.open(name, path)
	if err != nil {
		l.config.Log(0, "failed to load unit %s: %v", name, err)
		l.health.RecordFailure(name, err)
		return
	}

	l.extensions.Add(name, reg)
	l.mu.Lock()
	l.units[name] = &loadedUnit{name: name, path: path, lua: luaUnit}
	l.mu.Unlock()
	l.health.RecordLoaded(name)
}

// ReloadScript replaces a previously loaded Lua unit with a freshly loaded
// copy of its script. Used by the hot loader; shared objects stay
// restart-only. Returns the unit name for downstream notifications.
func (l *Loader) ReloadScript(path string) (string, error) {
	name := UnitName(path)
	if l.disabled(name) {
		return name, nil
	}

	unit, err := luaext.LoadUnit(l.config, name, path)
	if err != nil {
		l.health.RecordFailure(name, err)
		return name, err
	}

	l.extensions.ReplaceUnit(name, unit.Registration())

	l.mu.Lock()
	previous := l.units[name]
	l.units[name] = &loadedUnit{name: name, path: path, lua: unit}
	l.mu.Unlock()

	// The old state closes only after the registry stopped handing out its
	// renderers; in-flight renders hold the unit's own lock.
	if previous != nil && previous.lua != nil {
		previous.lua.Close()
	}

	l.health.RecordLoaded(name)
	l.config.Log(0, "reloaded lua unit %s", name)
	return name, nil
}

// Units returns the names of the successfully loaded units.
func (l *Loader) Units() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.units))
	for name := range l.units {
		names = append(names, name)
	}
	return names
}

// disabled reports whether a unit identifier is configured off.
func (l *Loader) disabled(name string) bool {
	for _, d := range l.config.Plugins.Disabled {
		if d == name {
			return true
		}
	}
	return false
}

// open loads one unit by format.
func (l *Loader) open(name, path string) (api.Registration, *luaext.Unit, error) {
	switch filepath.Ext(path) {
	case ".so":
		reg, err := openSharedObject(path)
		return reg, nil, err
	case ".lua":
		unit, err := luaext.LoadUnit(l.config, name, path)
		if err != nil {
			return api.Registration{}, nil, err
		}
		return unit.Registration(), unit, nil
	default:
		return api.Registration{}, nil, fmt.Errorf("unsupported unit format: %s", filepath.Ext(path))
	}
}

// openSharedObject loads a Go plugin and calls its entry point. The entry
// point runs extension code, so panics are recovered into load failures.
func openSharedObject(path string) (reg api.Registration, err error) {
	p, err := plugin.Open(path)
	if err != nil {
		return reg, fmt.Errorf("failed to open plugin: %w", err)
	}

	sym, err := p.Lookup(api.EntryPoint)
	if err != nil {
		return reg, fmt.Errorf("plugin does not export %s: %w", api.EntryPoint, err)
	}

	entry, ok := sym.(func() api.Registration)
	if !ok {
		return reg, fmt.Errorf("%s has wrong type %T", api.EntryPoint, sym)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s panicked: %v", api.EntryPoint, rec)
		}
	}()
	return entry(), nil
}
