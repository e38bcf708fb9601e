// Package storage implements the persistence backends for pages and the
// migration history.
package storage

import (
	"errors"
	"fmt"

	"github.com/zot/modhost/internal/config"
	"github.com/zot/modhost/internal/page"
)

// ErrNotFound is returned when a requested page does not exist.
var ErrNotFound = errors.New("page not found")

// Backend defines the interface for storage backends.
type Backend interface {
	// SavePage creates or replaces a page.
	SavePage(p *page.Page) error

	// LoadPage retrieves a page by name. Returns ErrNotFound if absent.
	LoadPage(name string) (*page.Page, error)

	// ListPages returns all persisted pages.
	ListPages() ([]*page.Page, error)

	// DeletePage removes a page. Deleting an absent page is not an error.
	DeletePage(name string) error

	// MigrationApplied reports whether a module's named migration succeeded
	// in a previous run.
	MigrationApplied(module, name string) (bool, error)

	// RecordMigration upserts a migration-history record.
	RecordMigration(module, name string, success bool) error

	// Close closes the storage backend.
	Close() error
}

// Open creates the backend selected by the configuration.
func Open(cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Type {
	case "", "memory":
		return NewMemoryStorage(), nil
	case "sqlite":
		return NewSQLiteStorage(cfg.Storage.Path)
	case "postgresql":
		return NewPostgresStorage(cfg.Storage.URL)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}
