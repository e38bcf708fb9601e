// Package migrate orders and runs module schema migrations before the host
// starts serving. Unlike registration, a failure here aborts startup: a
// half-migrated schema is unsafe to serve against.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/zot/modhost/api"
	"github.com/zot/modhost/internal/config"
	"github.com/zot/modhost/internal/health"
	"github.com/zot/modhost/internal/storage"
)

// ErrCycle is returned when the declared module dependencies form a cycle.
var ErrCycle = errors.New("migration dependency cycle detected")

// Order resolves the migration order for the given modules: a topological
// sort over declared dependencies, with numeric priority (lower first) and
// then name as the tie-break among unblocked modules. Dependency names that
// match no migrating module are ignored. Only modules implementing
// api.Migrator participate.
func Order(modules []api.Module) ([]api.Module, error) {
	type node struct {
		module     api.Module
		migrator   api.Migrator
		dependents []string
		blockers   int
	}

	nodes := make(map[string]*node)
	for _, m := range modules {
		migrator, ok := m.(api.Migrator)
		if !ok {
			continue
		}
		nodes[m.Name()] = &node{module: m, migrator: migrator}
	}

	for name, n := range nodes {
		for _, dep := range n.migrator.DependsOnModules() {
			if dep == name {
				continue
			}
			if blocker, ok := nodes[dep]; ok {
				blocker.dependents = append(blocker.dependents, name)
				n.blockers++
			}
		}
	}

	ready := make([]string, 0, len(nodes))
	for name, n := range nodes {
		if n.blockers == 0 {
			ready = append(ready, name)
		}
	}

	ordered := make([]api.Module, 0, len(nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			pi := nodes[ready[i]].migrator.MigrationPriority()
			pj := nodes[ready[j]].migrator.MigrationPriority()
			if pi != pj {
				return pi < pj
			}
			return ready[i] < ready[j]
		})

		name := ready[0]
		ready = ready[1:]
		n := nodes[name]
		ordered = append(ordered, n.module)

		for _, dependent := range n.dependents {
			d := nodes[dependent]
			d.blockers--
			if d.blockers == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(ordered) < len(nodes) {
		var stuck []string
		seen := make(map[string]bool, len(ordered))
		for _, m := range ordered {
			seen[m.Name()] = true
		}
		for name := range nodes {
			if !seen[name] {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: %v", ErrCycle, stuck)
	}
	return ordered, nil
}

// Coordinator runs module migrations against the storage backend.
type Coordinator struct {
	config *config.Config
	store  storage.Backend
	health *health.Monitor
}

// NewCoordinator creates a migration coordinator.
func NewCoordinator(cfg *config.Config, store storage.Backend, monitor *health.Monitor) *Coordinator {
	return &Coordinator{
		config: cfg,
		store:  store,
		health: monitor,
	}
}

// Run migrates every module in resolved order. The first failure is
// recorded against the module and returned; the caller must abort startup.
func (c *Coordinator) Run(ctx context.Context, modules []api.Module) error {
	ordered, err := Order(modules)
	if err != nil {
		return err
	}

	for _, m := range ordered {
		c.config.Log(1, "running migrations for module %s", m.Name())
		if err := c.apply(ctx, m); err != nil {
			c.health.RecordFailure(m.Name(), err)
			return fmt.Errorf("migrations for module %s: %w", m.Name(), err)
		}
	}
	return nil
}

// apply invokes one module's migration hook with panic recovery. A panic is
// still a migration failure, and still fatal.
func (c *Coordinator) apply(ctx context.Context, m api.Module) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("migration panicked: %v", rec)
		}
	}()
	return m.(api.Migrator).ApplyMigrations(ctx, &migrationHost{
		store:  c.store,
		module: m.Name(),
	})
}

// migrationHost scopes the migration history to one module.
type migrationHost struct {
	store  storage.Backend
	module string
}

// Applied reports whether the named migration already ran successfully.
func (h *migrationHost) Applied(name string) (bool, error) {
	return h.store.MigrationApplied(h.module, name)
}

// Run executes step unless already applied, recording the outcome either way.
func (h *migrationHost) Run(name string, step func() error) error {
	applied, err := h.Applied(name)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	stepErr := step()
	if recordErr := h.store.RecordMigration(h.module, name, stepErr == nil); recordErr != nil {
		if stepErr != nil {
			return stepErr
		}
		return recordErr
	}
	return stepErr
}
