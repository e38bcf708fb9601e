package storage

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/zot/modhost/internal/page"
)

func samplePage(name string) *page.Page {
	return &page.Page{
		Name:  name,
		Title: "Title of " + name,
		Components: []page.PlacedComponent{
			{Type: "heading", Position: 1, Config: json.RawMessage(`{"text":"hi"}`)},
			{Type: "input", Position: 2, Config: json.RawMessage(`{"label":"Name"}`)},
		},
	}
}

// TestSaveAndLoad verifies a page roundtrips through memory storage
func TestSaveAndLoad(t *testing.T) {
	s := NewMemoryStorage()
	if err := s.SavePage(samplePage("home")); err != nil {
		t.Fatalf("SavePage failed: %v", err)
	}

	p, err := s.LoadPage("home")
	if err != nil {
		t.Fatalf("LoadPage failed: %v", err)
	}
	if p.Title != "Title of home" || len(p.Components) != 2 {
		t.Errorf("Expected full page back, got %+v", p)
	}
}

// TestLoadMissingIsNotFound verifies the sentinel error for unknown pages
func TestLoadMissingIsNotFound(t *testing.T) {
	s := NewMemoryStorage()
	if _, err := s.LoadPage("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

// TestLoadedPageIsIsolated verifies mutating a loaded page doesn't corrupt
// stored state
func TestLoadedPageIsIsolated(t *testing.T) {
	s := NewMemoryStorage()
	s.SavePage(samplePage("home"))

	p, _ := s.LoadPage("home")
	p.Title = "mutated"
	p.Components[0].Type = "mutated"

	fresh, _ := s.LoadPage("home")
	if fresh.Title != "Title of home" || fresh.Components[0].Type != "heading" {
		t.Errorf("Expected stored page unchanged, got %+v", fresh)
	}
}

// TestSaveReplaces verifies saving a page with the same name overwrites it
func TestSaveReplaces(t *testing.T) {
	s := NewMemoryStorage()
	s.SavePage(samplePage("home"))
	s.SavePage(&page.Page{Name: "home", Title: "Replaced"})

	p, _ := s.LoadPage("home")
	if p.Title != "Replaced" || len(p.Components) != 0 {
		t.Errorf("Expected replacement, got %+v", p)
	}

	pages, _ := s.ListPages()
	if len(pages) != 1 {
		t.Errorf("Expected 1 page, got %d", len(pages))
	}
}

// TestDeletePage verifies deletion and that deleting a missing page is a
// no-op
func TestDeletePage(t *testing.T) {
	s := NewMemoryStorage()
	s.SavePage(samplePage("home"))

	if err := s.DeletePage("home"); err != nil {
		t.Fatalf("DeletePage failed: %v", err)
	}
	if _, err := s.LoadPage("home"); !errors.Is(err, ErrNotFound) {
		t.Error("Expected page gone after delete")
	}
	if err := s.DeletePage("home"); err != nil {
		t.Errorf("Expected deleting a missing page to be a no-op, got %v", err)
	}
}

// TestMigrationHistory verifies the applied flag tracks success only
func TestMigrationHistory(t *testing.T) {
	s := NewMemoryStorage()

	applied, err := s.MigrationApplied("audit", "001-init")
	if err != nil || applied {
		t.Fatalf("Expected unknown migration unapplied, got %v (%v)", applied, err)
	}

	s.RecordMigration("audit", "001-init", false)
	if applied, _ := s.MigrationApplied("audit", "001-init"); applied {
		t.Error("Expected failed migration to read as unapplied")
	}

	s.RecordMigration("audit", "001-init", true)
	if applied, _ := s.MigrationApplied("audit", "001-init"); !applied {
		t.Error("Expected successful migration to read as applied")
	}

	// History is per module.
	if applied, _ := s.MigrationApplied("billing", "001-init"); applied {
		t.Error("Expected other module's history untouched")
	}
}
