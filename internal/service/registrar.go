package service

import (
	"fmt"
	"net/http"

	"github.com/zot/modhost/api"
	"github.com/zot/modhost/internal/config"
	"github.com/zot/modhost/internal/health"
)

// Registrar runs the module registration sequence: validate configuration,
// stage service contributions, resolve conflicts, commit, map endpoints.
// A failure anywhere excludes that module only; the host keeps going.
type Registrar struct {
	config   *config.Config
	services *Registry
	health   *health.Monitor
}

// NewRegistrar creates a registrar committing into the given service set.
func NewRegistrar(cfg *config.Config, services *Registry, monitor *health.Monitor) *Registrar {
	return &Registrar{
		config:   cfg,
		services: services,
		health:   monitor,
	}
}

// RegisterAll registers each module in turn and returns the ones that were
// accepted. Rejected modules are recorded in the health monitor with the
// failure that excluded them.
func (r *Registrar) RegisterAll(modules []api.Module, mux *http.ServeMux) []api.Module {
	accepted := make([]api.Module, 0, len(modules))
	for _, m := range modules {
		if err := r.register(m, mux); err != nil {
			r.config.Log(0, "module %s failed to register: %v", m.Name(), err)
			r.health.RecordFailure(m.Name(), err)
			continue
		}
		r.config.Log(1, "module %s registered", m.Name())
		r.health.RecordLoaded(m.Name())
		accepted = append(accepted, m)
	}
	return accepted
}

// register runs the registration sequence for one module. Panics from the
// module's hooks are recovered into errors.
func (r *Registrar) register(m api.Module, mux *http.ServeMux) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("module panicked: %v", rec)
		}
	}()

	if c, ok := m.(api.Configurable); ok {
		section := r.config.ModuleSection(c.ConfigurationSection())
		if err := c.ValidateConfiguration(section); err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}
	}

	// Stage everything before committing anything, so a conflict in one
	// contribution cannot leave the module half-registered.
	staged := m.RegisterServices()
	commit := make([]api.ServiceContribution, 0, len(staged))
	for _, contribution := range staged {
		if contribution.Type == "" || contribution.Factory == nil {
			return fmt.Errorf("invalid service contribution for type %q", contribution.Type)
		}
		owner, claimed := r.services.Provider(contribution.Type)
		if claimed && !contribution.AllowOverride {
			r.config.Log(0, "service %s from module %s conflicts with module %s, keeping first",
				contribution.Type, m.Name(), owner)
			r.services.record(Record{
				Type:   contribution.Type,
				Module: m.Name(),
				Reason: fmt.Sprintf("already provided by %s", owner),
			})
			continue
		}
		if claimed {
			r.config.Log(0, "service %s from module %s overrides module %s",
				contribution.Type, m.Name(), owner)
		}
		commit = append(commit, contribution)
	}

	for _, contribution := range commit {
		r.services.commit(Entry{
			Type:     contribution.Type,
			Provider: m.Name(),
			Instance: contribution.Factory(),
		})
		r.services.record(Record{
			Type:     contribution.Type,
			Module:   m.Name(),
			Accepted: true,
		})
	}

	if mux != nil {
		m.MapEndpoints(mux)
	}
	return nil
}
