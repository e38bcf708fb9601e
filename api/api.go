// Package api defines the capability surface between the host and extension
// units. Extension units (shared objects or Lua scripts in the plugin
// directory) hand the host a Registration; everything the host knows about a
// unit flows through the types in this package.
package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// EntryPoint is the symbol a shared-object extension unit must export.
// Its signature is func() Registration.
const EntryPoint = "Register"

// Registration is the typed set of capabilities an extension unit contributes.
type Registration struct {
	Modules    []Module
	Renderers  []ComponentRenderer
	Extensions []RenderExtension
}

// ServiceContribution is one (capability type, factory) pair a module offers
// to the process-wide service set. AllowOverride controls conflict
// resolution: a contribution for an already-claimed type is skipped unless it
// sets AllowOverride, in which case it replaces the previous owner.
type ServiceContribution struct {
	// Type is the capability name, e.g. "search" or "mailer".
	Type string

	// Factory constructs the service instance. Called once, at commit time.
	Factory func() any

	// AllowOverride permits this contribution to replace an earlier module's
	// contribution for the same type.
	AllowOverride bool
}

// Module is an independently authored unit contributing services and routes
// to the host. Optional capabilities (configuration validation, migrations)
// are expressed as additional interfaces the module may implement.
type Module interface {
	// Name identifies the module. It must be unique across all loaded units.
	Name() string

	// RegisterServices returns the module's service contributions. The host
	// stages these, resolves conflicts, and commits the survivors.
	RegisterServices() []ServiceContribution

	// MapEndpoints lets the module declare HTTP routes. Called only for
	// modules that registered successfully.
	MapEndpoints(mux *http.ServeMux)
}

// Configurable is implemented by modules that carry a configuration section.
// ValidateConfiguration runs during registration; an error excludes the
// module from the host without affecting other modules.
type Configurable interface {
	// ConfigurationSection names the module's section under [modules] in the
	// host configuration file.
	ConfigurationSection() string

	// ValidateConfiguration checks the section's settings. The section is nil
	// when the configuration file has no entry for this module.
	ValidateConfiguration(section map[string]any) error
}

// Migrator is implemented by modules that own schema migrations. Migration
// ordering across modules follows declared dependencies, with priority as the
// tie-break (lower runs first).
type Migrator interface {
	// MigrationPriority orders modules with no dependency relationship.
	MigrationPriority() int

	// DependsOnModules names modules whose migrations must run first. Names
	// that match no loaded module are ignored.
	DependsOnModules() []string

	// ApplyMigrations runs the module's migration steps through the host.
	// Any error here aborts host startup.
	ApplyMigrations(ctx context.Context, host MigrationHost) error
}

// MigrationHost is handed to a module during its migration step. It tracks
// which named migrations have already been applied so that re-running the
// host is idempotent.
type MigrationHost interface {
	// Applied reports whether the named migration already ran successfully.
	Applied(name string) (bool, error)

	// Run executes step unless the named migration was already applied, and
	// records the outcome in the migration history either way.
	Run(name string, step func() error) error
}

// ComponentRenderer turns a small JSON configuration blob into an HTML
// fragment for one UI component type.
type ComponentRenderer interface {
	// Type is the component-type key pages refer to.
	Type() string

	// DisplayName is a human-readable name for design-time listings.
	DisplayName() string

	// DefaultConfig is the configuration a newly placed component starts with.
	DefaultConfig() json.RawMessage

	// RenderHTML produces the component's HTML fragment.
	RenderHTML(config json.RawMessage) (string, error)
}

// RenderExtension rewrites a fully rendered page before it is published to
// the cache. Extensions run in ascending Order.
type RenderExtension interface {
	// Name identifies the extension for diagnostics.
	Name() string

	// Order positions this extension in the pipeline (lower runs first).
	Order() int

	// Transform rewrites the rendered HTML for the named page.
	Transform(page string, html string) (string, error)
}
