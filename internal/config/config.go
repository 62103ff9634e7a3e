// Package config resolves agent-setup's defaults and optional user
// overrides.
//
// Defaults derive from XDG paths; an optional TOML file at
// $XDG_CONFIG_HOME/agent/setup.toml overrides the source location and
// server settings. Flags beat the file, the file beats defaults.
// Platform detection and package lists are never configured here —
// they are recomputed from host state every run.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// Defaults for the engine source tree.
const (
	DefaultRemote = "https://github.com/ggml-org/llama.cpp"
	DefaultRef    = "master"
)

// Config holds the resolved settings for one run.
type Config struct {
	// Remote is the engine source URL.
	Remote string `toml:"remote"`

	// Ref is the branch tracked by the local checkout.
	Ref string `toml:"ref"`

	// SourceDir is the local checkout path. This is the one artifact
	// that persists across runs.
	SourceDir string `toml:"source_dir"`

	// Prefix is where install stages artifacts. Defaults under $HOME
	// so installation needs no privilege.
	Prefix string `toml:"prefix"`

	// ServerHost and ServerPort are where agent-setup serve binds
	// llama-server.
	ServerHost string `toml:"server_host"`
	ServerPort int    `toml:"server_port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Remote:     DefaultRemote,
		Ref:        DefaultRef,
		SourceDir:  filepath.Join(xdg.DataHome, "agent", "llama.cpp"),
		Prefix:     filepath.Join(xdg.Home, ".local"),
		ServerHost: "127.0.0.1",
		ServerPort: 8080,
	}
}

// File returns the user override file location.
func File() string {
	return filepath.Join(xdg.ConfigHome, "agent", "setup.toml")
}

// PidFile returns where serve records the running server's pid.
func PidFile() string {
	return filepath.Join(xdg.StateHome, "agent", "llama-server.pid")
}

// Load returns the defaults merged with the user override file.
// A missing file is not an error; a malformed one is.
func Load() (*Config, error) {
	return loadFromPath(File())
}

// loadFromPath reads overrides from a specific file (for testing).
func loadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Decoding into the defaults means unset keys keep their values.
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}
