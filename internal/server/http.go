package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zot/modhost/internal/cache"
	"github.com/zot/modhost/internal/config"
	"github.com/zot/modhost/internal/health"
	"github.com/zot/modhost/internal/page"
	"github.com/zot/modhost/internal/registry"
	"github.com/zot/modhost/internal/service"
	"github.com/zot/modhost/internal/storage"
)

// PageRefresher re-renders a page and republishes it to the cache.
// Implemented by the Host.
type PageRefresher interface {
	RefreshPage(name string) error
}

// HTTPEndpoint handles HTTP requests: the cached-page hot path, the admin
// API, and the live-refresh socket. Module routes are mapped onto the same
// mux by the registrar.
type HTTPEndpoint struct {
	config     *config.Config
	cache      *cache.RenderCache
	health     *health.Monitor
	services   *service.Registry
	extensions *registry.Extensions
	store      storage.Backend
	refresher  PageRefresher
	notifier   *Notifier
	mux        *http.ServeMux
}

// NewHTTPEndpoint creates the endpoint and installs its routes on mux.
func NewHTTPEndpoint(cfg *config.Config, mux *http.ServeMux, renderCache *cache.RenderCache,
	monitor *health.Monitor, services *service.Registry, extensions *registry.Extensions,
	store storage.Backend, refresher PageRefresher, notifier *Notifier) *HTTPEndpoint {

	h := &HTTPEndpoint{
		config:     cfg,
		cache:      renderCache,
		health:     monitor,
		services:   services,
		extensions: extensions,
		store:      store,
		refresher:  refresher,
		notifier:   notifier,
		mux:        mux,
	}
	h.setupRoutes()
	return h
}

// setupRoutes configures HTTP routes.
func (h *HTTPEndpoint) setupRoutes() {
	h.mux.HandleFunc("GET /pages/{name}", h.handlePage)
	h.mux.HandleFunc("GET /api/status", h.handleStatus)
	h.mux.HandleFunc("GET /api/pages", h.handleListPages)
	h.mux.HandleFunc("POST /api/pages", h.handleSavePage)
	h.mux.HandleFunc("DELETE /api/pages/{name}", h.handleDeletePage)
	h.mux.HandleFunc("POST /api/invalidate", h.handleInvalidate)
	h.mux.HandleFunc("GET /api/renderers", h.handleRenderers)
	h.mux.HandleFunc("GET /ws", h.handleWebSocket)
}

// ServeHTTP implements http.Handler.
func (h *HTTPEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// handlePage is the request-serving hot path: a single cache read.
func (h *HTTPEndpoint) handlePage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	html, ok := h.cache.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// handleStatus reports per-unit outcomes and the committed service set.
func (h *HTTPEndpoint) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"units":         h.health.List(),
		"services":      h.services.Entries(),
		"contributions": h.services.Records(),
		"cached_pages":  h.cache.Len(),
	})
}

// handleListPages lists persisted pages and whether each is cached.
func (h *HTTPEndpoint) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.store.ListPages()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type pageInfo struct {
		Name   string `json:"name"`
		Title  string `json:"title"`
		Cached bool   `json:"cached"`
	}
	result := make([]pageInfo, 0, len(pages))
	for _, p := range pages {
		_, cached := h.cache.Get(p.Name)
		result = append(result, pageInfo{Name: p.Name, Title: p.Title, Cached: cached})
	}
	writeJSON(w, result)
}

// handleSavePage persists a page, re-renders it, and republishes its HTML.
func (h *HTTPEndpoint) handleSavePage(w http.ResponseWriter, r *http.Request) {
	var p page.Page
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad page: "+err.Error())
		return
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "page needs a name")
		return
	}

	if err := h.store.SavePage(&p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.refresher.RefreshPage(p.Name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"saved": p.Name})
}

// handleDeletePage removes a page from storage and from the cache.
func (h *HTTPEndpoint) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, err := h.store.LoadPage(name); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "page not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if err := h.store.DeletePage(name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.cache.Invalidate(name)
	h.notifier.Broadcast(Event{Event: "page-updated", Page: name})
	writeJSON(w, map[string]any{"deleted": name})
}

// handleInvalidate drops one page or the whole cache.
func (h *HTTPEndpoint) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page string `json:"page"`
		All  bool   `json:"all"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request: "+err.Error())
		return
	}

	switch {
	case req.All:
		h.cache.InvalidateAll()
		h.notifier.Broadcast(Event{Event: "cache-flushed"})
		h.config.Log(1, "cache flushed")
	case req.Page != "":
		h.cache.Invalidate(req.Page)
		h.notifier.Broadcast(Event{Event: "page-updated", Page: req.Page})
		h.config.Log(1, "page %s invalidated", req.Page)
	default:
		writeError(w, http.StatusBadRequest, "need \"page\" or \"all\"")
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

// handleRenderers lists registered component renderers for design-time use.
func (h *HTTPEndpoint) handleRenderers(w http.ResponseWriter, r *http.Request) {
	type rendererInfo struct {
		Type          string          `json:"type"`
		DisplayName   string          `json:"display_name"`
		DefaultConfig json.RawMessage `json:"default_config"`
	}
	renderers := h.extensions.Renderers()
	result := make([]rendererInfo, 0, len(renderers))
	for _, renderer := range renderers {
		result = append(result, rendererInfo{
			Type:          renderer.Type(),
			DisplayName:   renderer.DisplayName(),
			DefaultConfig: renderer.DefaultConfig(),
		})
	}
	writeJSON(w, result)
}

// handleWebSocket upgrades a live-refresh subscriber.
func (h *HTTPEndpoint) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.notifier.HandleWebSocket(w, r)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(value)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// isNotFound reports whether an error is the storage not-found sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
