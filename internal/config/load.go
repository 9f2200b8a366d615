package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvLedgerBackend  = "CYBERAID_LEDGER_BACKEND"
	EnvLedgerPath     = "CYBERAID_LEDGER_PATH"
	EnvResetOnCorrupt = "CYBERAID_LEDGER_RESET_ON_CORRUPT"
	EnvRecordsPath    = "CYBERAID_RECORDS_PATH"
	EnvSchemaPath     = "CYBERAID_SCHEMA_PATH"
	EnvLogLevel       = "CYBERAID_LOG_LEVEL"
	EnvLogFormat      = "CYBERAID_LOG_FORMAT"
)

// Load reads the config file at path over Default(), applies environment
// overrides and validates the result. An empty path skips the file.
//
// The file format follows the extension: .yaml/.yml or .toml.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config load: %w", err)
		}
		if err := decode(path, data, &c); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&c); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

func decode(path string, data []byte, c *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("config unmarshal: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("config unmarshal: %w", err)
		}
	default:
		return fmt.Errorf("config %s: unsupported extension %q (want .yaml, .yml or .toml)", path, ext)
	}
	return nil
}

// applyEnvOverrides lets CYBERAID_ environment variables override the file.
func applyEnvOverrides(c *Config) error {
	if v := os.Getenv(EnvLedgerBackend); v != "" {
		c.Ledger.Backend = v
	}
	if v := os.Getenv(EnvLedgerPath); v != "" {
		c.Ledger.Path = v
	}
	if v := os.Getenv(EnvResetOnCorrupt); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			c.Ledger.ResetOnCorrupt = true
		case "0", "false", "no":
			c.Ledger.ResetOnCorrupt = false
		default:
			return fmt.Errorf("%s=%q: want true or false", EnvResetOnCorrupt, v)
		}
	}
	if v := os.Getenv(EnvRecordsPath); v != "" {
		c.Records.Path = v
	}
	if v := os.Getenv(EnvSchemaPath); v != "" {
		c.Schema.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = strings.ToLower(v)
	}
	return nil
}

// Encode renders c in the format matching path's extension.
func Encode(path string, c Config) ([]byte, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Marshal(c)
	case ".toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, fmt.Errorf("encode config: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("config %s: unsupported extension %q (want .yaml, .yml or .toml)", path, ext)
	}
}

// WriteFile writes c to path, creating parent directories. It refuses to
// overwrite an existing file unless force is set.
func WriteFile(path string, c Config, force bool) error {
	data, err := Encode(path, c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write config: %w", err)
	}
	return f.Close()
}
