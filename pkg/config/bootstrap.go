package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// BootstrapFileName is looked up inside the config directory
const BootstrapFileName = "operator_config.yaml"

// LoadBootstrapConfig loads operator_config.yaml from configDir, applies
// defaults and environment overrides, and validates the result.
func LoadBootstrapConfig(configDir string) (*Config, error) {
	return LoadConfig(filepath.Join(configDir, BootstrapFileName))
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file '%s': %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file '%s': %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, applies defaults and the PORT override, and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT environment variable '%s': %w", port, err)
		}
		cfg.Server.HTTPPort = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
