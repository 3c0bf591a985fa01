// ABOUTME: TOML configuration for the Evelyn client
// ABOUTME: Optional config.toml under the user config directory with defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/evelyn-voice/evelyn-go/internal/transport"
)

// Config is the on-disk client configuration. Every field is optional.
type Config struct {
	Session SessionConfig `toml:"session"`
	Capture CaptureConfig `toml:"capture"`
	Logging LoggingConfig `toml:"logging"`
}

// SessionConfig selects the credential endpoint and the model.
type SessionConfig struct {
	Endpoint string `toml:"endpoint"`
	Model    string `toml:"model"`
}

// CaptureConfig selects the capture backend.
type CaptureConfig struct {
	Backend string `toml:"backend"`
}

// LoggingConfig selects the log destination.
type LoggingConfig struct {
	File string `toml:"file"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Session: SessionConfig{Model: transport.DefaultModel},
	}
}

// Path returns the config file location, creating its directory.
func Path() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	evelynDir := filepath.Join(configDir, "evelyn")
	if err := os.MkdirAll(evelynDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(evelynDir, "config.toml"), nil
}

// Load reads the config file at path, or defaults when it is missing.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if config.Session.Model == "" {
		config.Session.Model = transport.DefaultModel
	}
	return config, nil
}
