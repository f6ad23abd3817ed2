package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file shape. Every field except
// metrics.enabled has a command-line flag equivalent; metrics.addr is only
// used when metrics.enabled is true. An explicitly-passed flag always wins
// over a value loaded from file (see applyConfigDefaults' use of
// cmd.Flags().Changed).
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	Storage struct {
		Kind string `yaml:"kind"`
		DSN  string `yaml:"dsn"`
	} `yaml:"storage"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func loadConfig(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return &cfg, nil
}
