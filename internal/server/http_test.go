package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zot/modhost/internal/builtin"
	"github.com/zot/modhost/internal/cache"
	"github.com/zot/modhost/internal/config"
	"github.com/zot/modhost/internal/health"
	"github.com/zot/modhost/internal/page"
	"github.com/zot/modhost/internal/registry"
	"github.com/zot/modhost/internal/service"
	"github.com/zot/modhost/internal/storage"
)

// testRefresher re-renders through the real page renderer, like the host
// does, without spinning up a full Host.
type testRefresher struct {
	store    storage.Backend
	renderer *page.Renderer
	cache    *cache.RenderCache
}

func (r *testRefresher) RefreshPage(name string) error {
	p, err := r.store.LoadPage(name)
	if err != nil {
		return err
	}
	r.cache.Set(name, r.renderer.RenderPage(p))
	return nil
}

func newTestEndpoint(t *testing.T) (*HTTPEndpoint, *cache.RenderCache, storage.Backend) {
	t.Helper()
	cfg := config.DefaultConfig()
	extensions := registry.NewExtensions(cfg)
	extensions.Add("builtin", builtin.Registration())
	monitor := health.NewMonitor()
	renderCache := cache.NewRenderCache()
	store := storage.NewMemoryStorage()
	renderer := page.NewRenderer(cfg, extensions, monitor)

	endpoint := NewHTTPEndpoint(cfg, http.NewServeMux(), renderCache, monitor,
		service.NewRegistry(), extensions, store,
		&testRefresher{store: store, renderer: renderer, cache: renderCache},
		NewNotifier(cfg))
	return endpoint, renderCache, store
}

func doRequest(t *testing.T, endpoint *HTTPEndpoint, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	endpoint.ServeHTTP(rec, req)
	return rec
}

// TestPageHitServesCachedHTML verifies the hot path serves straight from the
// cache
func TestPageHitServesCachedHTML(t *testing.T) {
	endpoint, renderCache, _ := newTestEndpoint(t)
	renderCache.Set("home", "<div>cached home</div>")

	rec := doRequest(t, endpoint, "GET", "/pages/home", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Expected HTML content type, got %s", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != "<div>cached home</div>" {
		t.Errorf("Expected cached HTML verbatim, got %q", rec.Body.String())
	}
}

// TestPageMissIs404 verifies an uncached page yields a JSON 404
func TestPageMissIs404(t *testing.T) {
	endpoint, _, _ := newTestEndpoint(t)

	rec := doRequest(t, endpoint, "GET", "/pages/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected JSON error body, got %q", rec.Body.String())
	}
	if body["error"] == "" {
		t.Error("Expected an error message")
	}
}

// TestSavePagePersistsAndCaches verifies POST /api/pages stores, renders,
// and publishes the page
func TestSavePagePersistsAndCaches(t *testing.T) {
	endpoint, renderCache, store := newTestEndpoint(t)

	payload := []byte(`{
		"name": "showcase",
		"title": "Showcase",
		"components": [
			{"type": "heading", "position": 1, "config": {"text": "Welcome", "level": 1}}
		]
	}`)
	rec := doRequest(t, endpoint, "POST", "/api/pages", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if _, err := store.LoadPage("showcase"); err != nil {
		t.Errorf("Expected page persisted, got %v", err)
	}
	html, ok := renderCache.Get("showcase")
	if !ok {
		t.Fatal("Expected page cached after save")
	}
	if !strings.Contains(html, "<h1 class=\"mh-heading\">Welcome</h1>") {
		t.Errorf("Expected rendered heading, got:\n%s", html)
	}
}

// TestSavePageWithoutNameRejected verifies validation on save
func TestSavePageWithoutNameRejected(t *testing.T) {
	endpoint, _, _ := newTestEndpoint(t)
	rec := doRequest(t, endpoint, "POST", "/api/pages", []byte(`{"title":"anon"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

// TestDeletePageDropsStorageAndCache verifies DELETE removes both copies
func TestDeletePageDropsStorageAndCache(t *testing.T) {
	endpoint, renderCache, store := newTestEndpoint(t)
	store.SavePage(&page.Page{Name: "old", Title: "Old"})
	renderCache.Set("old", "<div>old</div>")

	rec := doRequest(t, endpoint, "DELETE", "/api/pages/old", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if _, err := store.LoadPage("old"); err == nil {
		t.Error("Expected page gone from storage")
	}
	if _, ok := renderCache.Get("old"); ok {
		t.Error("Expected page gone from cache")
	}

	rec = doRequest(t, endpoint, "DELETE", "/api/pages/old", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing page, got %d", rec.Code)
	}
}

// TestInvalidateSingleAndAll verifies the invalidation API
func TestInvalidateSingleAndAll(t *testing.T) {
	endpoint, renderCache, _ := newTestEndpoint(t)
	renderCache.Set("a", "A")
	renderCache.Set("b", "B")

	rec := doRequest(t, endpoint, "POST", "/api/invalidate", []byte(`{"page":"a"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if _, ok := renderCache.Get("a"); ok {
		t.Error("Expected page a invalidated")
	}
	if _, ok := renderCache.Get("b"); !ok {
		t.Error("Expected page b untouched")
	}

	rec = doRequest(t, endpoint, "POST", "/api/invalidate", []byte(`{"all":true}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if renderCache.Len() != 0 {
		t.Errorf("Expected empty cache, got %d entries", renderCache.Len())
	}

	rec = doRequest(t, endpoint, "POST", "/api/invalidate", []byte(`{}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty request, got %d", rec.Code)
	}
}

// TestListPagesReportsCachedFlag verifies the page listing
func TestListPagesReportsCachedFlag(t *testing.T) {
	endpoint, renderCache, store := newTestEndpoint(t)
	store.SavePage(&page.Page{Name: "hot", Title: "Hot"})
	store.SavePage(&page.Page{Name: "cold", Title: "Cold"})
	renderCache.Set("hot", "<div>hot</div>")

	rec := doRequest(t, endpoint, "GET", "/api/pages", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var listed []struct {
		Name   string `json:"name"`
		Cached bool   `json:"cached"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("Failed to decode listing: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(listed))
	}
	cached := map[string]bool{}
	for _, p := range listed {
		cached[p.Name] = p.Cached
	}
	if !cached["hot"] || cached["cold"] {
		t.Errorf("Expected hot cached and cold not, got %v", cached)
	}
}

// TestStatusReportsCounts verifies the status endpoint shape
func TestStatusReportsCounts(t *testing.T) {
	endpoint, renderCache, _ := newTestEndpoint(t)
	renderCache.Set("home", "<div/>")

	rec := doRequest(t, endpoint, "GET", "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var status struct {
		CachedPages int `json:"cached_pages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status.CachedPages != 1 {
		t.Errorf("Expected 1 cached page, got %d", status.CachedPages)
	}
}

// TestRenderersListing verifies builtins show up with their metadata
func TestRenderersListing(t *testing.T) {
	endpoint, _, _ := newTestEndpoint(t)

	rec := doRequest(t, endpoint, "GET", "/api/renderers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var listed []struct {
		Type        string `json:"type"`
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("Failed to decode renderers: %v", err)
	}
	if len(listed) != 4 {
		t.Fatalf("Expected 4 builtin renderers, got %d", len(listed))
	}
	if listed[0].Type != "heading" {
		t.Errorf("Expected type-sorted listing starting with heading, got %s", listed[0].Type)
	}
}
