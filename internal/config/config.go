// Package config handles configuration loading from CLI flags, environment
// variables, and TOML files.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration settings for the host.
type Config struct {
	Server  ServerConfig              `toml:"server"`
	Plugins PluginsConfig             `toml:"plugins"`
	Storage StorageConfig             `toml:"storage"`
	Render  RenderConfig              `toml:"render"`
	Logging LoggingConfig             `toml:"logging"`
	MCP     MCPConfig                 `toml:"mcp"`
	Modules map[string]map[string]any `toml:"modules"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// PluginsConfig holds plugin-directory settings.
type PluginsConfig struct {
	Dir       string   `toml:"dir"`
	Disabled  []string `toml:"disabled"`   // unit identifiers skipped at load time
	HotReload bool     `toml:"hot_reload"` // reload Lua units on file change
}

// StorageConfig holds storage-related settings.
type StorageConfig struct {
	Type string `toml:"type"` // "memory", "sqlite", "postgresql"
	Path string `toml:"path"` // SQLite file path
	URL  string `toml:"url"`  // PostgreSQL connection URL
}

// RenderConfig holds rendering settings.
type RenderConfig struct {
	ComponentTimeout Duration `toml:"component_timeout"` // per-component render budget
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Verbosity int `toml:"verbosity"` // 0=startup only, 1=lifecycle, 2=per-request, 3=per-component
}

// MCPConfig controls the MCP admin mode.
type MCPConfig struct {
	Enabled bool `toml:"enabled"`
}

// verbosityCounter implements flag.Value for counting -v flags.
type verbosityCounter int

func (v *verbosityCounter) String() string {
	return fmt.Sprintf("%d", *v)
}

func (v *verbosityCounter) Set(string) error {
	*v++
	return nil
}

func (v *verbosityCounter) IsBoolFlag() bool {
	return true
}

// expandVerbosityFlags preprocesses args to expand -vvv into -v -v -v.
// This allows both "-v -v -v" and "-vvv" styles to work.
func expandVerbosityFlags(args []string) []string {
	result := make([]string, 0, len(args))
	for _, arg := range args {
		if len(arg) > 2 && arg[0] == '-' && arg[1] == 'v' {
			allV := true
			for _, c := range arg[1:] {
				if c != 'v' {
					allV = false
					break
				}
			}
			if allV {
				for range arg[1:] {
					result = append(result, "-v")
				}
				continue
			}
		}
		result = append(result, arg)
	}
	return result
}

// Duration is a time.Duration that can be unmarshaled from TOML strings.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// DefaultConfig returns a Config with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Plugins: PluginsConfig{
			Dir: "plugins/",
		},
		Storage: StorageConfig{
			Type: "memory",
			Path: "modhost.db",
		},
		Render: RenderConfig{
			ComponentTimeout: Duration(5 * time.Second),
		},
		Logging: LoggingConfig{
			Verbosity: 0,
		},
	}
}

// Load loads configuration from CLI flags, environment variables, and TOML file.
// Priority: CLI flags > env vars > TOML file > defaults
func Load(args []string) (*Config, error) {
	cfg := DefaultConfig()

	args = expandVerbosityFlags(args)

	fs := flag.NewFlagSet("modhost", flag.ContinueOnError)
	configFile := fs.String("config", "", "Configuration file path")

	host := fs.String("host", "", "Listen address")
	port := fs.Int("port", 0, "Listen port")

	pluginDir := fs.String("plugins", "", "Plugin directory")

	storage := fs.String("storage", "", "Storage type: memory, sqlite, postgresql")
	storagePath := fs.String("storage-path", "", "SQLite database path")
	storageURL := fs.String("storage-url", "", "PostgreSQL connection URL")

	var verbosity verbosityCounter
	fs.Var(&verbosity, "v", "Verbosity level (use -v, -vv, or -vvv)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	configPath := "config/modhost.toml"
	if *configFile != "" {
		configPath = *configFile
	}
	if err := cfg.loadTOML(configPath); err != nil {
		if *configFile != "" || !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg.applyEnv()

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *pluginDir != "" {
		cfg.Plugins.Dir = *pluginDir
	}
	if *storage != "" {
		cfg.Storage.Type = *storage
	}
	if *storagePath != "" {
		cfg.Storage.Path = *storagePath
	}
	if *storageURL != "" {
		cfg.Storage.URL = *storageURL
	}
	if verbosity > 0 {
		cfg.Logging.Verbosity = int(verbosity)
	}

	return cfg, nil
}

// loadTOML loads configuration from a TOML file.
func (c *Config) loadTOML(path string) error {
	_, err := toml.DecodeFile(path, c)
	return err
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("MODHOST_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("MODHOST_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("MODHOST_PLUGIN_DIR"); v != "" {
		c.Plugins.Dir = v
	}
	if v := os.Getenv("MODHOST_STORAGE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("MODHOST_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("MODHOST_STORAGE_URL"); v != "" {
		c.Storage.URL = v
	}
	if v := os.Getenv("MODHOST_VERBOSITY"); v != "" {
		if verbosity, err := strconv.Atoi(v); err == nil {
			c.Logging.Verbosity = verbosity
		}
	}
}

// ModuleSection returns the configuration section for the named module, or
// nil when the file has no entry for it.
func (c *Config) ModuleSection(name string) map[string]any {
	if c.Modules == nil {
		return nil
	}
	return c.Modules[name]
}

// Verbosity returns the configured verbosity level (0-3).
func (c *Config) Verbosity() int {
	return c.Logging.Verbosity
}

// Log writes a log message when the configured verbosity is at least level.
func (c *Config) Log(level int, format string, args ...interface{}) {
	if c.Logging.Verbosity >= level {
		log.Printf(format, args...)
	}
}
