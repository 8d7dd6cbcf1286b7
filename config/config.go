// Package config holds one Config struct covering logging, socket paths,
// tty counts, and the escape character: a JSON file with
// coretypes.ServerLogConfig embedded, defaults filled in when a value is
// missing or invalid.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	coretypes "github.com/projecteru2/core/types"

	"github.com/projecteru2/conmux/utils"
)

// DefaultEscape is Ctrl-a (1), the conventional default detach prefix.
const DefaultEscape byte = 1

// DefaultTTYCount is the number of auxiliary tty slots a freshly created
// console supervisor carries alongside the console pty itself.
const DefaultTTYCount = 4

// Config holds global conmux configuration.
type Config struct {
	// RootDir is the base directory for runtime state (control sockets,
	// console logs) when callers don't supply explicit paths.
	RootDir string `json:"root_dir"`
	// Escape is the detach prefix byte (1..26, conventionally Ctrl-a).
	Escape byte `json:"escape"`
	// TTYCount is the number of auxiliary tty slots per console.
	TTYCount int `json:"tty_count"`
	// Log configuration, uses eru core's ServerLogConfig.
	Log coretypes.ServerLogConfig `json:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RootDir:  "/var/lib/conmux",
		Escape:   DefaultEscape,
		TTYCount: DefaultTTYCount,
		Log: coretypes.ServerLogConfig{
			Level:      "info",
			MaxSize:    500,
			MaxAge:     28,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from file, falling back to defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // config path from CLI flag
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	Normalize(cfg)
	return cfg, nil
}

// Normalize clamps fields read from a config file, flags, or environment
// variables back into their documented domains: Escape must be 1..26,
// TTYCount and RootDir fall back to their defaults when unset or
// invalid. Exported so callers that build a Config outside LoadConfig
// (cmd/root.go's viper-based initConfig) can apply the same clamping.
func Normalize(cfg *Config) {
	if cfg.Escape == 0 || cfg.Escape > 26 { //nolint:mnd
		cfg.Escape = DefaultEscape
	}
	if cfg.TTYCount <= 0 {
		cfg.TTYCount = DefaultTTYCount
	}
	if cfg.RootDir == "" {
		cfg.RootDir = "/var/lib/conmux"
	}
}

// EnsureDirs creates the runtime directories a running supervisor needs
// and returns cfg unchanged. Runs once from PersistentPreRunE before any
// subcommand executes.
func EnsureDirs(cfg *Config) (*Config, error) {
	if err := utils.EnsureDirs(cfg.runDir(), cfg.logDir()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) runDir() string { return filepath.Join(c.RootDir, "run") }
func (c *Config) logDir() string { return filepath.Join(c.RootDir, "log") }

// SocketPath returns the control-socket path for a named console.
func (c *Config) SocketPath(name string) string {
	return filepath.Join(c.runDir(), name+".sock")
}

// ConsoleLogPath returns the console transcript log path for a named
// console, used as the default when --log-path is not given.
func (c *Config) ConsoleLogPath(name string) string {
	return filepath.Join(c.logDir(), name+".console.log")
}
