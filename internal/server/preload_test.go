package server

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/zot/modhost/internal/builtin"
	"github.com/zot/modhost/internal/cache"
	"github.com/zot/modhost/internal/config"
	"github.com/zot/modhost/internal/health"
	"github.com/zot/modhost/internal/page"
	"github.com/zot/modhost/internal/registry"
	"github.com/zot/modhost/internal/storage"
)

// TestPreloadRendersAllPages verifies startup preloading publishes every
// persisted page
func TestPreloadRendersAllPages(t *testing.T) {
	cfg := config.DefaultConfig()
	extensions := registry.NewExtensions(cfg)
	extensions.Add("builtin", builtin.Registration())
	store := storage.NewMemoryStorage()
	renderCache := cache.NewRenderCache()
	renderer := page.NewRenderer(cfg, extensions, health.NewMonitor())

	store.SavePage(&page.Page{Name: "home", Title: "Home", Components: []page.PlacedComponent{
		{Type: "heading", Position: 1, Config: json.RawMessage(`{"text":"Home","level":1}`)},
	}})
	store.SavePage(&page.Page{Name: "about", Title: "About", Components: []page.PlacedComponent{
		{Type: "mystery", Position: 1},
	}})

	count := NewPreloader(cfg, store, renderer, renderCache).Preload()
	if count != 2 {
		t.Fatalf("Expected 2 pages preloaded, got %d", count)
	}

	home, ok := renderCache.Get("home")
	if !ok || !strings.Contains(home, "Home") {
		t.Errorf("Expected home cached with content, got %q (%v)", home, ok)
	}

	// A page with an unknown component type still preloads, carrying the
	// warning fragment.
	about, ok := renderCache.Get("about")
	if !ok || !strings.Contains(about, "no renderer for component type mystery") {
		t.Errorf("Expected about cached with warning fragment, got %q (%v)", about, ok)
	}
}
