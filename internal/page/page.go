// Package page defines the renderable page model and the composition
// pipeline that turns a page into HTML.
package page

import (
	"encoding/json"
	"sort"
)

// PlacedComponent is one component placed on a page: its renderer type, its
// position in document order, and its JSON configuration.
type PlacedComponent struct {
	Type     string          `json:"type"`
	Position int             `json:"position"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Page is a named, ordered collection of placed components. Pages are owned
// by the storage backend; the host only derives and caches their HTML.
type Page struct {
	Name       string            `json:"name"`
	Title      string            `json:"title"`
	Components []PlacedComponent `json:"components"`
}

// Ordered returns the page's components sorted by ascending position.
// Components sharing a position keep their declared order.
func (p *Page) Ordered() []PlacedComponent {
	ordered := make([]PlacedComponent, len(p.Components))
	copy(ordered, p.Components)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})
	return ordered
}
