// Package config loads chartline configuration from defaults, an optional
// YAML file, environment variables and CLI flags, in that precedence order
// (later wins).
package config

// Config holds all CLI and server configuration options.
type Config struct {
	// Port is the API server listen port.
	Port int `koanf:"port"`
	// StatePath is the lineage cache database path. Empty disables the
	// cache.
	StatePath string `koanf:"state_path"`
	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
	// Output selects CLI output rendering (table|json).
	Output string `koanf:"output"`
}

// Default configuration values.
const (
	DefaultPort   = 8765
	DefaultOutput = "table"
)
