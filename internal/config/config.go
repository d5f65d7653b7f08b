// Package config provides configuration management for the GDB-MCP server.
//
// Configuration controls:
//   - The GDB binary and any extra arguments it is started with
//   - Timeouts for connecting, synchronous commands and polled commands
//   - The log level
//
// Configuration can be loaded from a TOML file or use sensible defaults.
// Only keys present in the file override the defaults.
package config

import (
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/ctagard/gdb-mcp/internal/errors"
)

// Config holds the server configuration
type Config struct {
	GDB      GDBConfig
	Timeouts TimeoutConfig
	LogLevel string
}

// GDBConfig holds how GDB is started
type GDBConfig struct {
	Path string   // Path to the gdb binary
	Args []string // Extra arguments after the MI interpreter flags
}

// TimeoutConfig holds the bounded waits used when talking to GDB
type TimeoutConfig struct {
	Connect     time.Duration // wait for -target-select
	Command     time.Duration // wait for a synchronous command's result
	PollDelay   time.Duration // pause before polling a non-waiting command
	PollTimeout time.Duration // bound on that poll
	Settle      time.Duration // quiet period that ends a read
}

// fileConfig mirrors the TOML file layout
type fileConfig struct {
	GDBPath        string   `toml:"gdb_path"`
	GDBArgs        []string `toml:"gdb_args"`
	ConnectTimeout string   `toml:"connect_timeout"`
	CommandTimeout string   `toml:"command_timeout"`
	PollDelay      string   `toml:"poll_delay"`
	PollTimeout    string   `toml:"poll_timeout"`
	SettleInterval string   `toml:"settle_interval"`
	LogLevel       string   `toml:"log_level"`
}

// findGDB searches for gdb in common locations across platforms
func findGDB() string {
	// Check PATH first; gdb-multiarch is the cross-target build on Debian/Ubuntu
	for _, name := range []string{"gdb", "gdb-multiarch"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	locations := []string{
		"/usr/bin/gdb",
		"/usr/local/bin/gdb",
		"/opt/homebrew/bin/gdb", // Homebrew on Apple Silicon
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	// Fall back to default name (will fail if not in PATH, but provides clear error)
	return "gdb"
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		GDB: GDBConfig{
			Path: findGDB(),
		},
		Timeouts: TimeoutConfig{
			Connect:     5 * time.Second,
			Command:     10 * time.Second,
			PollDelay:   100 * time.Millisecond,
			PollTimeout: 5 * time.Second,
			Settle:      200 * time.Millisecond,
		},
		LogLevel: "info",
	}
}

// LoadConfig loads configuration from a TOML file. An empty path returns
// the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, errors.Wrap(errors.CodeConfigInvalid, "failed to load configuration: "+err.Error(),
			"Check the file for TOML syntax errors.", err)
	}

	if meta.IsDefined("gdb_path") {
		cfg.GDB.Path = strings.TrimSpace(raw.GDBPath)
	}
	if meta.IsDefined("gdb_args") {
		cfg.GDB.Args = raw.GDBArgs
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.Timeouts.Connect},
		{"command_timeout", raw.CommandTimeout, &cfg.Timeouts.Command},
		{"poll_delay", raw.PollDelay, &cfg.Timeouts.PollDelay},
		{"poll_timeout", raw.PollTimeout, &cfg.Timeouts.PollTimeout},
		{"settle_interval", raw.SettleInterval, &cfg.Timeouts.Settle},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return nil, errors.ConfigInvalid(d.key, err.Error()).WithCause(err)
		}
		*d.dst = v
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.ConfigInvalid(undecoded[0].String(), "unknown key")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.GDB.Path == "" {
		return errors.ConfigInvalid("gdb_path", "must not be empty")
	}

	durations := []struct {
		key string
		val time.Duration
	}{
		{"connect_timeout", c.Timeouts.Connect},
		{"command_timeout", c.Timeouts.Command},
		{"poll_delay", c.Timeouts.PollDelay},
		{"poll_timeout", c.Timeouts.PollTimeout},
		{"settle_interval", c.Timeouts.Settle},
	}
	for _, d := range durations {
		if d.val <= 0 {
			return errors.ConfigInvalid(d.key, "must be a positive duration").WithDetails("value", d.val.String())
		}
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.ConfigInvalid("log_level", err.Error()).WithCause(err)
	}
	return nil
}
