package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zot/modhost/internal/config"
	"github.com/zot/modhost/internal/health"
	"github.com/zot/modhost/internal/mcp"
	"github.com/zot/modhost/internal/plugin"
	"github.com/zot/modhost/internal/registry"
	"github.com/zot/modhost/internal/server"
)

// runServe starts the host and serves until interrupted.
func runServe(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	host := server.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := host.Startup(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		return 1
	}

	if cfg.MCP.Enabled {
		go func() {
			if err := mcp.NewServer(cfg, Version, host).ServeStdio(); err != nil {
				cfg.Log(0, "mcp server stopped: %v", err)
			}
		}()
	}

	if err := host.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}

// runMCP starts the host without the HTTP listener and serves admin tools
// over MCP stdio until stdin closes.
func runMCP(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	host := server.New(cfg)
	if err := host.Startup(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		return 1
	}
	defer host.Shutdown()

	if err := mcp.NewServer(cfg, Version, host).ServeStdio(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		return 1
	}
	return 0
}

// runPlugins scans the plugin directory and prints per-unit outcomes without
// starting the server.
func runPlugins(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	monitor := health.NewMonitor()
	extensions := registry.NewExtensions(cfg)
	loader := plugin.NewLoader(cfg, monitor, extensions)
	if err := loader.LoadAll(); err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		return 1
	}

	outcomes := monitor.List()
	if len(outcomes) == 0 {
		fmt.Printf("No extension units in %s\n", cfg.Plugins.Dir)
		return 0
	}
	for _, outcome := range outcomes {
		if outcome.Error != "" {
			fmt.Printf("%-24s %-10s %s\n", outcome.Name, outcome.Status, outcome.Error)
		} else {
			fmt.Printf("%-24s %s\n", outcome.Name, outcome.Status)
		}
	}
	fmt.Printf("\n%d loaded, %d failed, %d disabled\n",
		monitor.Count(health.StatusLoaded),
		monitor.Count(health.StatusFailed),
		monitor.Count(health.StatusDisabled))

	if monitor.Count(health.StatusFailed) > 0 {
		return 1
	}
	return 0
}

// runRender renders one page to stdout and exits.
func runRender(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: modhost render PAGE [options]")
		return 1
	}
	name := args[0]

	cfg, err := config.Load(args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	// One-shot run, no point watching the plugin directory.
	cfg.Plugins.HotReload = false

	host := server.New(cfg)
	if err := host.Startup(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		return 1
	}
	defer host.Shutdown()

	html, err := host.RenderPage(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Render failed: %v\n", err)
		return 1
	}
	fmt.Println(html)
	return 0
}
