package page

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/zot/modhost/api"
	"github.com/zot/modhost/internal/config"
	"github.com/zot/modhost/internal/health"
)

// RendererSource resolves component renderers and the render-extension
// pipeline. Implemented by the extension registry.
type RendererSource interface {
	Renderer(componentType string) (api.ComponentRenderer, bool)
	RenderExtensions() []api.RenderExtension
}

// Renderer composes a page's HTML from the renderers registered for its
// component types. A broken renderer degrades its own fragment; it never
// fails the page.
type Renderer struct {
	config *config.Config
	source RendererSource
	health *health.Monitor
}

// NewRenderer creates a page renderer.
func NewRenderer(cfg *config.Config, source RendererSource, monitor *health.Monitor) *Renderer {
	return &Renderer{
		config: cfg,
		source: source,
		health: monitor,
	}
}

// RenderPage produces the page's HTML. The wrapper is emitted
// unconditionally; each component contributes either its rendered fragment,
// an inline error fragment (renderer failed), or an inline warning fragment
// (no renderer registered for its type).
func (r *Renderer) RenderPage(p *Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<div class=\"page\" data-page=%q>\n", p.Name)
	fmt.Fprintf(&b, "<h1 class=\"page-title\">%s</h1>\n", html.EscapeString(p.Title))
	b.WriteString("<div class=\"page-components\">\n")

	for _, component := range p.Ordered() {
		b.WriteString(r.renderComponent(p.Name, component))
		b.WriteString("\n")
	}

	b.WriteString("</div>\n</div>\n")

	rendered := b.String()
	for _, ext := range r.source.RenderExtensions() {
		transformed, err := r.transform(ext, p.Name, rendered)
		if err != nil {
			r.config.Log(0, "render extension %s failed on page %s: %v", ext.Name(), p.Name, err)
			r.health.RecordFailure("Extension:"+ext.Name(), err)
			continue
		}
		rendered = transformed
	}
	return rendered
}

// renderComponent renders one placed component with full containment.
func (r *Renderer) renderComponent(pageName string, component PlacedComponent) string {
	renderer, ok := r.source.Renderer(component.Type)
	if !ok {
		r.config.Log(1, "page %s: no renderer registered for component type %s", pageName, component.Type)
		return fmt.Sprintf("<div class=\"component-missing\">no renderer for component type %s</div>",
			html.EscapeString(component.Type))
	}

	r.config.Log(3, "page %s: rendering component %s", pageName, component.Type)
	fragment, err := r.invoke(renderer, component)
	if err != nil {
		r.config.Log(0, "page %s: component %s failed to render: %v", pageName, component.Type, err)
		r.health.RecordFailure("Component:"+component.Type, err)
		return fmt.Sprintf("<div class=\"component-error\">component %s failed to render</div>",
			html.EscapeString(component.Type))
	}
	return fragment
}

// invoke calls a component renderer with panic recovery and a bounded
// timeout. Extensions are loaded in-process, so a panicking or stuck
// renderer is an expected failure mode; a timed-out renderer's goroutine is
// abandoned and its eventual result discarded.
func (r *Renderer) invoke(renderer api.ComponentRenderer, component PlacedComponent) (string, error) {
	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: fmt.Errorf("renderer panicked: %v", rec)}
			}
		}()
		html, err := renderer.RenderHTML(component.Config)
		done <- result{html: html, err: err}
	}()

	timeout := r.config.Render.ComponentTimeout.Duration()
	if timeout <= 0 {
		res := <-done
		return res.html, res.err
	}
	select {
	case res := <-done:
		return res.html, res.err
	case <-time.After(timeout):
		return "", fmt.Errorf("renderer timed out after %s", timeout)
	}
}

// transform applies one render extension with panic recovery.
func (r *Renderer) transform(ext api.RenderExtension, pageName, rendered string) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("extension panicked: %v", rec)
		}
	}()
	return ext.Transform(pageName, rendered)
}
