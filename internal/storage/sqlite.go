package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zot/modhost/internal/page"
)

// SQLiteStorage is a SQLite storage backend.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	s := &SQLiteStorage{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// init creates the necessary tables.
func (s *SQLiteStorage) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS pages (
			name TEXT PRIMARY KEY,
			title TEXT,
			components TEXT
		);
		CREATE TABLE IF NOT EXISTS migration_history (
			module TEXT NOT NULL,
			name TEXT NOT NULL,
			success INTEGER NOT NULL,
			applied_at INTEGER NOT NULL,
			PRIMARY KEY (module, name)
		);
	`)
	return err
}

// SavePage persists a page to SQLite.
func (s *SQLiteStorage) SavePage(p *page.Page) error {
	componentsJSON, err := json.Marshal(p.Components)
	if err != nil {
		componentsJSON = []byte("[]")
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO pages (name, title, components)
		VALUES (?, ?, ?)
	`, p.Name, p.Title, string(componentsJSON))

	return err
}

// LoadPage retrieves a page from SQLite.
func (s *SQLiteStorage) LoadPage(name string) (*page.Page, error) {
	var title, componentsStr string

	err := s.db.QueryRow(`
		SELECT title, components FROM pages WHERE name = ?
	`, name).Scan(&title, &componentsStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return decodePage(name, title, componentsStr), nil
}

// ListPages returns all persisted pages.
func (s *SQLiteStorage) ListPages() ([]*page.Page, error) {
	rows, err := s.db.Query(`SELECT name, title, components FROM pages`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*page.Page
	for rows.Next() {
		var name, title, componentsStr string
		if err := rows.Scan(&name, &title, &componentsStr); err != nil {
			continue
		}
		pages = append(pages, decodePage(name, title, componentsStr))
	}

	return pages, rows.Err()
}

// DeletePage removes a page from SQLite.
func (s *SQLiteStorage) DeletePage(name string) error {
	_, err := s.db.Exec("DELETE FROM pages WHERE name = ?", name)
	return err
}

// MigrationApplied reports whether a module's named migration succeeded.
func (s *SQLiteStorage) MigrationApplied(module, name string) (bool, error) {
	var success int
	err := s.db.QueryRow(`
		SELECT success FROM migration_history WHERE module = ? AND name = ?
	`, module, name).Scan(&success)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return success != 0, nil
}

// RecordMigration upserts a migration-history record.
func (s *SQLiteStorage) RecordMigration(module, name string, success bool) error {
	successInt := 0
	if success {
		successInt = 1
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO migration_history (module, name, success, applied_at)
		VALUES (?, ?, ?, ?)
	`, module, name, successInt, time.Now().Unix())

	return err
}

// Close closes the storage backend.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// decodePage rebuilds a page from its stored columns. A corrupt components
// column yields a page with no components rather than an error.
func decodePage(name, title, componentsStr string) *page.Page {
	p := &page.Page{Name: name, Title: title}
	if componentsStr != "" && componentsStr != "null" {
		if err := json.Unmarshal([]byte(componentsStr), &p.Components); err != nil {
			p.Components = nil
		}
	}
	return p
}
