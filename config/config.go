// Package config loads and validates fcom's TOML configuration file,
// matching the original's core-conf.h key set (workers, codepage, mod,
// mod_conf) and the teacher's Config/Default/Validate pattern.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

// Config is fcom's top-level configuration. All fields have safe defaults
// so callers can start with Default() and override only what they need.
type Config struct {
	// Worker pool controls.
	Workers   int `toml:"workers"`    // default: runtime.NumCPU()
	QueueSize int `toml:"queue_size"` // default: 256

	// Codepage used by text operations when no BOM is present and no
	// --codepage flag overrides it (e.g. "windows-1251", "koi8-r").
	Codepage string `toml:"codepage"`

	// ChunkSize is the streaming I/O buffer size in bytes.
	ChunkSize int `toml:"chunk_size"`

	// BufCount is a buffer count; Validate requires it to be positive and
	// no other code reads it.
	BufCount int `toml:"buf_count"`

	// Per-module overrides, keyed by module name ("arc", "image", ...).
	// Equivalent to the original's repeated "mod" + "mod_conf" directive
	// pairs, flattened into a table.
	Modules map[string]map[string]string `toml:"mod"`

	LogLevel string `toml:"log_level"` // "debug", "info", "warn", "error"
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Workers:   0, // resolved at runtime to NumCPU
		QueueSize: 256,
		Codepage:  "windows-1252",
		ChunkSize: 64 * 1024,
		BufCount:  4,
		Modules:   make(map[string]map[string]string),
		LogLevel:  "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk_size must be positive")
	}
	if c.BufCount <= 0 {
		return fmt.Errorf("config: buf_count must be positive")
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative")
	}
	return nil
}

// ResolvedWorkers returns c.Workers, substituting runtime.NumCPU() for the
// zero-value "auto" setting.
func ResolvedWorkers(c Config) int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// DefaultPath returns the platform-appropriate config file location:
// $XDG_CONFIG_HOME/fcom/fcom.toml (or ~/.config/fcom/fcom.toml) on
// Unix-likes, %APPDATA%\fcom\fcom.toml on Windows.
func DefaultPath() (string, error) {
	if runtime.GOOS == "windows" {
		base := os.Getenv("APPDATA")
		if base == "" {
			return "", fmt.Errorf("config: APPDATA is not set")
		}
		return filepath.Join(base, "fcom", "fcom.toml"), nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "fcom", "fcom.toml"), nil
}

// Load reads and parses the TOML file at path, starting from Default()
// and overriding only the fields present in the file. Unknown keys are a
// hard error, matching the original's strict directive parser.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := Validate(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadOrDefault behaves like Load but returns Default() unchanged when
// path does not exist, rather than treating a missing config file as an
// error.
func LoadOrDefault(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}
