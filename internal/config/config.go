// Package config loads cyberaid settings from an optional YAML or TOML file
// with CYBERAID_* environment overrides.
package config

import (
	"fmt"
	"slices"
)

// Ledger backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config is the full cyberaid configuration.
type Config struct {
	Ledger  LedgerConfig  `yaml:"ledger" toml:"ledger"`
	Records RecordsConfig `yaml:"records" toml:"records"`
	Schema  SchemaConfig  `yaml:"schema" toml:"schema"`
	Log     LogConfig     `yaml:"log" toml:"log"`
}

// LedgerConfig selects where the chain lives.
type LedgerConfig struct {
	// Backend is "file" (one JSON document) or "sqlite" (blocks table).
	Backend string `yaml:"backend" toml:"backend"`
	// Path is the chain file, or the SQLite database for the sqlite backend.
	Path string `yaml:"path" toml:"path"`
	// ResetOnCorrupt is the operator's acknowledgment that unreadable
	// storage may be quarantined and a new chain started.
	ResetOnCorrupt bool `yaml:"reset_on_corrupt" toml:"reset_on_corrupt"`
}

// RecordsConfig locates the report record store.
type RecordsConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// SchemaConfig points at a CUE file declaring #Report. Empty selects the
// built-in schema.
type SchemaConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug | info | warn | error
	Format string `yaml:"format" toml:"format"` // text | json
}

var (
	validBackends   = []string{BackendFile, BackendSQLite}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Ledger: LedgerConfig{
			Backend: BackendFile,
			Path:    "./data/blockchain.json",
		},
		Records: RecordsConfig{
			Path: "./data/records.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if !slices.Contains(validBackends, c.Ledger.Backend) {
		return fmt.Errorf("ledger.backend %q: must be one of %v", c.Ledger.Backend, validBackends)
	}
	if c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required")
	}
	if c.Records.Path == "" {
		return fmt.Errorf("records.path is required")
	}
	if !slices.Contains(validLogLevels, c.Log.Level) {
		return fmt.Errorf("log.level %q: must be one of %v", c.Log.Level, validLogLevels)
	}
	if !slices.Contains(validLogFormats, c.Log.Format) {
		return fmt.Errorf("log.format %q: must be one of %v", c.Log.Format, validLogFormats)
	}
	return nil
}

// SharedDatabase reports whether the sqlite ledger and the record store
// use the same database file.
func (c Config) SharedDatabase() bool {
	return c.Ledger.Backend == BackendSQLite && c.Ledger.Path == c.Records.Path
}
