// Package cli provides the command-line interface for modhost.
// This file re-exports internal packages so wrapper projects can embed the
// host without importing internal paths.
package cli

import (
	"github.com/zot/modhost/internal/cache"
	"github.com/zot/modhost/internal/health"
	"github.com/zot/modhost/internal/page"
	"github.com/zot/modhost/internal/server"
	"github.com/zot/modhost/internal/storage"
)

// Re-export host types for embedding
type (
	Host        = server.Host
	Event       = server.Event
	RenderCache = cache.RenderCache
	Monitor     = health.Monitor
	Outcome     = health.Outcome
	Status      = health.Status
	Page        = page.Page
	Component   = page.PlacedComponent
	Backend     = storage.Backend
)

// Re-export host constructors
var (
	NewHost     = server.New
	OpenStorage = storage.Open
)
