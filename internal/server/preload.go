package server

import (
	"fmt"

	"github.com/zot/modhost/internal/cache"
	"github.com/zot/modhost/internal/config"
	"github.com/zot/modhost/internal/page"
	"github.com/zot/modhost/internal/storage"
)

// Preloader fills the render cache from persisted pages. It runs once after
// modules are registered and migrated; a failure on one page is logged and
// skipped so the rest still preload.
type Preloader struct {
	config   *config.Config
	store    storage.Backend
	renderer *page.Renderer
	cache    *cache.RenderCache
}

// NewPreloader creates a preloader.
func NewPreloader(cfg *config.Config, store storage.Backend, renderer *page.Renderer, renderCache *cache.RenderCache) *Preloader {
	return &Preloader{
		config:   cfg,
		store:    store,
		renderer: renderer,
		cache:    renderCache,
	}
}

// Preload renders every persisted page into the cache and returns how many
// were published.
func (p *Preloader) Preload() int {
	pages, err := p.store.ListPages()
	if err != nil {
		p.config.Log(0, "preload: failed to list pages: %v", err)
		return 0
	}

	rendered := make(map[string]string, len(pages))
	for _, pg := range pages {
		html, err := p.renderOne(pg)
		if err != nil {
			p.config.Log(0, "preload: skipping page %s: %v", pg.Name, err)
			continue
		}
		rendered[pg.Name] = html
	}

	p.cache.SetAll(rendered)
	p.config.Log(0, "preloaded %d pages", len(rendered))
	return len(rendered)
}

// renderOne renders a single page, converting panics into errors so one bad
// page cannot stop the preload.
func (p *Preloader) renderOne(pg *page.Page) (html string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("render panicked: %v", rec)
		}
	}()
	return p.renderer.RenderPage(pg), nil
}
