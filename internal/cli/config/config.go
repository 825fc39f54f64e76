// Package config provides configuration management for the sqlscope CLI
// and server. Values are merged from defaults, an optional YAML file,
// SQLSCOPE_-prefixed environment variables, and command-line flags, in
// ascending priority.
package config

// Config holds all CLI and server configuration options.
type Config struct {
	SchemaDir    string       `koanf:"schema_dir"`
	Dialect      string       `koanf:"dialect"`
	Verbose      bool         `koanf:"verbose"`
	OutputFormat string       `koanf:"output"`
	Server       ServerConfig `koanf:"server"`
}

// ServerConfig holds configuration for the HTTP validation server.
type ServerConfig struct {
	Addr            string `koanf:"addr"`
	ReadTimeoutSec  int    `koanf:"read_timeout_sec"`
	WriteTimeoutSec int    `koanf:"write_timeout_sec"`
	MaxBodyBytes    int64  `koanf:"max_body_bytes"`
}

// Default configuration values.
const (
	DefaultSchemaDir = "schemas"
	DefaultDialect   = "postgres"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=json
	DefaultAddr      = ":8585"
)

// DefaultMaxBodyBytes bounds request bodies accepted by the server; a SQL
// statement bigger than this is almost certainly not a statement.
const DefaultMaxBodyBytes = 1 << 20
