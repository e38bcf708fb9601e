// Package cache implements the in-memory render cache. It is the only thing
// read on the page-serving hot path; pages are rendered ahead of time and
// published here as whole strings.
package cache

import "sync"

// RenderCache is a concurrency-safe mapping from page name to rendered HTML.
// Entries are replaced atomically as whole strings; a concurrent Get never
// observes a partially written value.
type RenderCache struct {
	pages map[string]string
	mu    sync.RWMutex
}

// NewRenderCache creates an empty cache.
func NewRenderCache() *RenderCache {
	return &RenderCache{
		pages: make(map[string]string),
	}
}

// Get returns the cached HTML for a page. The second result distinguishes a
// miss from a cached empty string.
func (c *RenderCache) Get(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	html, ok := c.pages[name]
	return html, ok
}

// Set upserts the HTML for one page.
func (c *RenderCache) Set(name, html string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[name] = html
}

// SetAll replaces the entire cache contents. The replacement map is built
// before the swap so concurrent readers see either the old population or the
// new one, never an empty window.
func (c *RenderCache) SetAll(pages map[string]string) {
	fresh := make(map[string]string, len(pages))
	for name, html := range pages {
		fresh[name] = html
	}
	c.mu.Lock()
	c.pages = fresh
	c.mu.Unlock()
}

// Invalidate removes one page.
func (c *RenderCache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pages, name)
}

// InvalidateAll removes every page.
func (c *RenderCache) InvalidateAll() {
	c.mu.Lock()
	c.pages = make(map[string]string)
	c.mu.Unlock()
}

// Names returns the cached page names.
func (c *RenderCache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.pages))
	for name := range c.pages {
		names = append(names, name)
	}
	return names
}

// Len returns the number of cached pages.
func (c *RenderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}
