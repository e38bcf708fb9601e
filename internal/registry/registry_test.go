package registry

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/zot/modhost/api"
	"github.com/zot/modhost/internal/config"
)

type fakeRenderer struct {
	typ  string
	html string
}

func (f fakeRenderer) Type() string                   { return f.typ }
func (f fakeRenderer) DisplayName() string            { return f.typ }
func (f fakeRenderer) DefaultConfig() json.RawMessage { return json.RawMessage(`{}`) }
func (f fakeRenderer) RenderHTML(json.RawMessage) (string, error) {
	return f.html, nil
}

type fakeModule struct{ name string }

func (f fakeModule) Name() string                                { return f.name }
func (f fakeModule) RegisterServices() []api.ServiceContribution { return nil }
func (f fakeModule) MapEndpoints(mux *http.ServeMux)             {}

type fakeExtension struct {
	name  string
	order int
}

func (f fakeExtension) Name() string { return f.name }
func (f fakeExtension) Order() int   { return f.order }
func (f fakeExtension) Transform(page, html string) (string, error) {
	return html, nil
}

// TestAddKeepsFirstRenderer verifies a duplicate renderer type from a later
// unit is ignored
func TestAddKeepsFirstRenderer(t *testing.T) {
	e := NewExtensions(config.DefaultConfig())
	e.Add("alpha", api.Registration{Renderers: []api.ComponentRenderer{fakeRenderer{typ: "chart", html: "alpha-chart"}}})
	e.Add("beta", api.Registration{Renderers: []api.ComponentRenderer{
		fakeRenderer{typ: "chart", html: "beta-chart"},
		fakeRenderer{typ: "table", html: "beta-table"},
	}})

	r, ok := e.Renderer("chart")
	if !ok {
		t.Fatal("Expected chart renderer")
	}
	if html, _ := r.RenderHTML(nil); html != "alpha-chart" {
		t.Errorf("Expected first unit's renderer kept, got %q", html)
	}
	if _, ok := e.Renderer("table"); !ok {
		t.Error("Expected non-conflicting renderer from the later unit")
	}
}

// TestAddDedupsModules verifies duplicate module names keep the first
func TestAddDedupsModules(t *testing.T) {
	e := NewExtensions(config.DefaultConfig())
	e.Add("alpha", api.Registration{Modules: []api.Module{fakeModule{name: "billing"}}})
	e.Add("beta", api.Registration{Modules: []api.Module{fakeModule{name: "billing"}, fakeModule{name: "audit"}}})

	modules := e.Modules()
	if len(modules) != 2 {
		t.Fatalf("Expected 2 modules, got %d", len(modules))
	}
	if modules[0].Name() != "billing" || modules[1].Name() != "audit" {
		t.Errorf("Expected registration order preserved, got %s, %s", modules[0].Name(), modules[1].Name())
	}
}

// TestExtensionsSortedByOrder verifies the pipeline runs low order first
func TestExtensionsSortedByOrder(t *testing.T) {
	e := NewExtensions(config.DefaultConfig())
	e.Add("alpha", api.Registration{Extensions: []api.RenderExtension{fakeExtension{name: "late", order: 90}}})
	e.Add("beta", api.Registration{Extensions: []api.RenderExtension{fakeExtension{name: "early", order: 10}}})

	exts := e.RenderExtensions()
	if len(exts) != 2 {
		t.Fatalf("Expected 2 extensions, got %d", len(exts))
	}
	if exts[0].Name() != "early" || exts[1].Name() != "late" {
		t.Errorf("Expected order sort, got %s, %s", exts[0].Name(), exts[1].Name())
	}
}

// TestRenderersSortedByType verifies the listing is deterministic
func TestRenderersSortedByType(t *testing.T) {
	e := NewExtensions(config.DefaultConfig())
	e.Add("alpha", api.Registration{Renderers: []api.ComponentRenderer{
		fakeRenderer{typ: "table"},
		fakeRenderer{typ: "chart"},
	}})

	renderers := e.Renderers()
	if len(renderers) != 2 || renderers[0].Type() != "chart" || renderers[1].Type() != "table" {
		t.Errorf("Expected type-sorted renderers, got %v", renderers)
	}
}

// TestReplaceUnitSwapsRenderers verifies hot reload drops a unit's old types
// and installs the new ones
func TestReplaceUnitSwapsRenderers(t *testing.T) {
	e := NewExtensions(config.DefaultConfig())
	e.Add("script", api.Registration{Renderers: []api.ComponentRenderer{
		fakeRenderer{typ: "badge", html: "v1"},
		fakeRenderer{typ: "tag", html: "v1"},
	}})

	e.ReplaceUnit("script", api.Registration{Renderers: []api.ComponentRenderer{
		fakeRenderer{typ: "badge", html: "v2"},
	}})

	r, ok := e.Renderer("badge")
	if !ok {
		t.Fatal("Expected badge renderer after reload")
	}
	if html, _ := r.RenderHTML(nil); html != "v2" {
		t.Errorf("Expected reloaded renderer, got %q", html)
	}
	if _, ok := e.Renderer("tag"); ok {
		t.Error("Expected renderer dropped by the reload to be gone")
	}
}
