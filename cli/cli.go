// Package cli provides the command-line interface for modhost.
// It exports Run() and RunWithHooks() to allow extension by wrapper projects.
package cli

import (
	"fmt"
	"os"
)

// Version is the host version reported by the version command and the MCP
// server.
const Version = "0.1.0"

// Hooks allows extending the CLI with additional commands.
type Hooks struct {
	// BeforeDispatch is called before command dispatch.
	// Return (handled=true, exitCode) to skip normal dispatch.
	BeforeDispatch func(command string, args []string) (handled bool, exitCode int)

	// CustomHelp returns additional help text to append.
	CustomHelp func() string

	// CustomVersion returns version info to append (optional).
	CustomVersion func() string
}

// Run executes the CLI with the given arguments.
// Returns exit code (0 = success, non-zero = error).
func Run(args []string) int {
	return RunWithHooks(args, nil)
}

// RunWithHooks executes CLI with extension hooks.
func RunWithHooks(args []string, hooks *Hooks) int {
	if len(args) < 1 {
		return runServe(args)
	}

	command := args[0]
	cmdArgs := args[1:]

	// Let hooks intercept first
	if hooks != nil && hooks.BeforeDispatch != nil {
		if handled, code := hooks.BeforeDispatch(command, cmdArgs); handled {
			return code
		}
	}

	switch command {
	case "serve":
		return runServe(cmdArgs)
	case "plugins":
		return runPlugins(cmdArgs)
	case "render":
		return runRender(cmdArgs)
	case "mcp":
		return runMCP(cmdArgs)
	case "help", "-h", "--help":
		printHelp(hooks)
		return 0
	case "version", "-v", "--version":
		printVersion(hooks)
		return 0
	default:
		// Check if it's a flag (starts with -)
		if len(command) > 0 && command[0] == '-' {
			return runServe(args)
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printHelp(hooks)
		return 1
	}
}

func printHelp(hooks *Hooks) {
	fmt.Println(`Modhost - Modular Page Host

Usage: modhost [command] [options]

Server Commands:
  serve           Start the page host (default)
  mcp             Start the host and serve admin tools over MCP stdio

Inspection:
  plugins         Scan the plugin directory and report load outcomes
  render PAGE     Render one page to stdout and exit

Other:
  help            Show this help
  version         Show version

Server Options:
  -host           Listen address (default: 0.0.0.0)
  -port           Listen port (default: 8080)
  -config         Config file path (default: config/modhost.toml)
  -plugins        Plugin directory (default: plugins)
  -storage        Storage type: memory, sqlite, postgresql
  -storage-path   SQLite database path
  -storage-url    PostgreSQL connection URL
  -v              Increase log verbosity (repeatable, -vv, -vvv)

Examples:
  modhost serve -port 8080
  modhost serve -plugins ./plugins -storage sqlite -storage-path modhost.db
  modhost plugins -plugins ./plugins
  modhost render dashboard -storage sqlite -storage-path modhost.db`)

	if hooks != nil && hooks.CustomHelp != nil {
		fmt.Println(hooks.CustomHelp())
	}
}

func printVersion(hooks *Hooks) {
	fmt.Println("Modhost v" + Version)
	if hooks != nil && hooks.CustomVersion != nil {
		fmt.Println(hooks.CustomVersion())
	}
}
