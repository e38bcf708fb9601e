// Package mcp exposes the host's admin surface over the Model Context
// Protocol on stdio: cached-page reads, re-rendering, invalidation, and the
// health record.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/zot/modhost/internal/cache"
	"github.com/zot/modhost/internal/config"
	"github.com/zot/modhost/internal/health"
	"github.com/zot/modhost/internal/storage"
)

// Admin is the slice of the host the MCP surface operates on.
type Admin interface {
	Health() *health.Monitor
	Cache() *cache.RenderCache
	Store() storage.Backend
	RefreshPage(name string) error
}

// Server wraps an MCP server over the host admin surface.
type Server struct {
	config *config.Config
	admin  Admin
	mcp    *server.MCPServer
}

// NewServer creates the MCP admin server.
func NewServer(cfg *config.Config, version string, admin Admin) *Server {
	s := &Server{
		config: cfg,
		admin:  admin,
		mcp:    server.NewMCPServer("modhost", version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio processes MCP messages until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("get_page",
			mcp.WithDescription("Get the cached HTML for a page"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Page name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			name, err := req.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			html, ok := s.admin.Cache().Get(name)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("page %s is not cached", name)), nil
			}
			return mcp.NewToolResultText(html), nil
		})

	s.mcp.AddTool(
		mcp.NewTool("render_page",
			mcp.WithDescription("Re-render a page from storage and republish it to the cache"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Page name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			name, err := req.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := s.admin.RefreshPage(name); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			html, _ := s.admin.Cache().Get(name)
			return mcp.NewToolResultText(html), nil
		})

	s.mcp.AddTool(
		mcp.NewTool("invalidate",
			mcp.WithDescription("Invalidate one cached page, or the whole cache"),
			mcp.WithString("page", mcp.Description("Page name to invalidate")),
			mcp.WithBoolean("all", mcp.Description("Invalidate every cached page")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if req.GetBool("all", false) {
				s.admin.Cache().InvalidateAll()
				return mcp.NewToolResultText("cache flushed"), nil
			}
			page := req.GetString("page", "")
			if page == "" {
				return mcp.NewToolResultError("need \"page\" or \"all\""), nil
			}
			s.admin.Cache().Invalidate(page)
			return mcp.NewToolResultText("invalidated " + page), nil
		})

	s.mcp.AddTool(
		mcp.NewTool("list_pages",
			mcp.WithDescription("List persisted pages"),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			pages, err := s.admin.Store().ListPages()
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			names := make([]string, 0, len(pages))
			for _, p := range pages {
				names = append(names, p.Name)
			}
			payload, _ := json.Marshal(names)
			return mcp.NewToolResultText(string(payload)), nil
		})
}

func (s *Server) registerResources() {
	s.mcp.AddResource(
		mcp.NewResource("modhost://status", "Host status",
			mcp.WithResourceDescription("Per-unit load outcomes and cache population"),
			mcp.WithMIMEType("application/json"),
		),
		func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			payload, err := json.Marshal(map[string]any{
				"units":        s.admin.Health().List(),
				"cached_pages": s.admin.Cache().Len(),
			})
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      req.Params.URI,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		})
}
