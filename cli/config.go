// Package cli provides the command-line interface for modhost.
// This file re-exports config types from internal/config for public API.
package cli

import (
	"github.com/zot/modhost/internal/config"
)

// Re-export config types for public API
type (
	Config        = config.Config
	ServerConfig  = config.ServerConfig
	PluginsConfig = config.PluginsConfig
	StorageConfig = config.StorageConfig
	RenderConfig  = config.RenderConfig
	LoggingConfig = config.LoggingConfig
	MCPConfig     = config.MCPConfig
	Duration      = config.Duration
)

// Re-export config functions for public API
var (
	DefaultConfig = config.DefaultConfig
	Load          = config.Load
)
