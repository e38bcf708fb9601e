package storage

import (
	"sync"

	"github.com/zot/modhost/internal/page"
)

// MemoryStorage is an in-memory storage backend.
type MemoryStorage struct {
	pages      map[string]*page.Page
	migrations map[string]bool // "module/name" -> success
	mu         sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		pages:      make(map[string]*page.Page),
		migrations: make(map[string]bool),
	}
}

// SavePage creates or replaces a page.
func (m *MemoryStorage) SavePage(p *page.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[p.Name] = copyPage(p)
	return nil
}

// LoadPage retrieves a page by name.
func (m *MemoryStorage) LoadPage(name string) (*page.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pages[name]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPage(p), nil
}

// ListPages returns all persisted pages.
func (m *MemoryStorage) ListPages() ([]*page.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*page.Page, 0, len(m.pages))
	for _, p := range m.pages {
		result = append(result, copyPage(p))
	}
	return result, nil
}

// DeletePage removes a page.
func (m *MemoryStorage) DeletePage(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, name)
	return nil
}

// MigrationApplied reports whether a module's named migration succeeded.
func (m *MemoryStorage) MigrationApplied(module, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.migrations[module+"/"+name], nil
}

// RecordMigration upserts a migration-history record.
func (m *MemoryStorage) RecordMigration(module, name string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.migrations[module+"/"+name] = success
	return nil
}

// Close is a no-op for memory storage.
func (m *MemoryStorage) Close() error {
	return nil
}

// copyPage returns a copy so callers cannot mutate stored state.
func copyPage(p *page.Page) *page.Page {
	components := make([]page.PlacedComponent, len(p.Components))
	copy(components, p.Components)
	return &page.Page{
		Name:       p.Name,
		Title:      p.Title,
		Components: components,
	}
}
