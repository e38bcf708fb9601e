package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/zot/modhost/internal/builtin"
	"github.com/zot/modhost/internal/cache"
	"github.com/zot/modhost/internal/config"
	"github.com/zot/modhost/internal/health"
	"github.com/zot/modhost/internal/migrate"
	"github.com/zot/modhost/internal/page"
	"github.com/zot/modhost/internal/plugin"
	"github.com/zot/modhost/internal/registry"
	"github.com/zot/modhost/internal/service"
	"github.com/zot/modhost/internal/storage"
)

// Host is the composed modular-monolith process: it discovers extension
// units, registers their modules, runs migrations, preloads the render
// cache, and then serves pages from memory.
type Host struct {
	config     *config.Config
	health     *health.Monitor
	extensions *registry.Extensions
	services   *service.Registry
	store      storage.Backend
	cache      *cache.RenderCache
	renderer   *page.Renderer
	loader     *plugin.Loader
	hotLoader  *plugin.HotLoader
	notifier   *Notifier
	endpoint   *HTTPEndpoint
	mux        *http.ServeMux
	httpServer *http.Server
	started    bool
}

// New creates a host with the given configuration. Startup must be called
// before serving.
func New(cfg *config.Config) *Host {
	monitor := health.NewMonitor()
	extensions := registry.NewExtensions(cfg)

	h := &Host{
		config:     cfg,
		health:     monitor,
		extensions: extensions,
		services:   service.NewRegistry(),
		cache:      cache.NewRenderCache(),
		renderer:   page.NewRenderer(cfg, extensions, monitor),
		loader:     plugin.NewLoader(cfg, monitor, extensions),
		notifier:   NewNotifier(cfg),
		mux:        http.NewServeMux(),
	}
	return h
}

// Startup runs the one-shot initialization sequence: open storage, load
// extension units, register modules, migrate, preload the cache. Only
// storage and migration failures are fatal; everything else degrades into
// health records.
func (h *Host) Startup(ctx context.Context) error {
	if h.started {
		return fmt.Errorf("host already started")
	}

	store, err := storage.Open(h.config)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	h.store = store

	h.endpoint = NewHTTPEndpoint(h.config, h.mux, h.cache, h.health, h.services,
		h.extensions, h.store, h, h.notifier)

	// Builtins register first so a plugin cannot displace a core renderer.
	h.extensions.Add("builtin", builtin.Registration())

	if err := h.loader.LoadAll(); err != nil {
		return err
	}

	registrar := service.NewRegistrar(h.config, h.services, h.health)
	accepted := registrar.RegisterAll(h.extensions.Modules(), h.mux)

	coordinator := migrate.NewCoordinator(h.config, h.store, h.health)
	if err := coordinator.Run(ctx, accepted); err != nil {
		return err
	}

	preloader := NewPreloader(h.config, h.store, h.renderer, h.cache)
	preloader.Preload()

	if h.config.Plugins.HotReload {
		hotLoader, err := plugin.NewHotLoader(h.config, h.loader, h.onUnitReload)
		if err != nil {
			h.config.Log(0, "hot reload unavailable: %v", err)
		} else if err := hotLoader.Start(); err != nil {
			h.config.Log(0, "hot reload unavailable: %v", err)
		} else {
			h.hotLoader = hotLoader
		}
	}

	h.started = true
	return nil
}

// Run starts the host and serves until the context is canceled.
func (h *Host) Run(ctx context.Context) error {
	if !h.started {
		if err := h.Startup(ctx); err != nil {
			return err
		}
	}

	addr := fmt.Sprintf("%s:%d", h.config.Server.Host, h.config.Server.Port)
	h.httpServer = &http.Server{
		Addr:    addr,
		Handler: h.endpoint,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	// Capture the actual port if 0 was passed.
	if h.config.Server.Port == 0 {
		_, portStr, _ := net.SplitHostPort(listener.Addr().String())
		h.config.Server.Port, _ = strconv.Atoi(portStr)
	}

	errCh := make(chan error, 1)
	go func() {
		h.config.Log(0, "serving on %s", listener.Addr())
		if err := h.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		h.Shutdown()
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops serving and releases resources.
func (h *Host) Shutdown() {
	if h.hotLoader != nil {
		h.hotLoader.Stop()
	}
	if h.httpServer != nil {
		h.httpServer.Shutdown(context.Background())
	}
	if h.store != nil {
		h.store.Close()
	}
}

// RefreshPage re-renders one page from storage and republishes it.
func (h *Host) RefreshPage(name string) error {
	p, err := h.store.LoadPage(name)
	if err != nil {
		return err
	}
	h.cache.Set(name, h.renderer.RenderPage(p))
	h.notifier.Broadcast(Event{Event: "page-updated", Page: name})
	return nil
}

// RenderPage renders a page by name without touching the cache. Used by the
// one-shot CLI render command.
func (h *Host) RenderPage(name string) (string, error) {
	p, err := h.store.LoadPage(name)
	if err != nil {
		return "", err
	}
	return h.renderer.RenderPage(p), nil
}

// Health returns the host's health monitor.
func (h *Host) Health() *health.Monitor {
	return h.health
}

// Cache returns the render cache.
func (h *Host) Cache() *cache.RenderCache {
	return h.cache
}

// Store returns the storage backend.
func (h *Host) Store() storage.Backend {
	return h.store
}

// Services returns the committed service set.
func (h *Host) Services() *service.Registry {
	return h.services
}

// Extensions returns the extension registry.
func (h *Host) Extensions() *registry.Extensions {
	return h.extensions
}

// onUnitReload re-renders everything after a Lua unit reload, since any page
// may reference the unit's component types.
func (h *Host) onUnitReload(unit string) {
	preloader := NewPreloader(h.config, h.store, h.renderer, h.cache)
	preloader.Preload()
	h.notifier.Broadcast(Event{Event: "unit-reloaded", Unit: unit})
}
