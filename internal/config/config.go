// Package config loads YAML configuration for the pktudp CLI tools, in
// the usual LoadConfig/setDefaults/validate/GenerateDefaultConfig shape.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration for pktd and the CLI tools.
type Config struct {
	Listen   ListenConfig   `yaml:"listen"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Logging  LoggingConfig  `yaml:"logging"`
	Registry RegistryConfig `yaml:"registry"`
	Audit    AuditConfig    `yaml:"audit"`
	Stats    StatsConfig    `yaml:"stats"`
}

// ListenConfig holds the listener bind address.
type ListenConfig struct {
	Addr string `yaml:"addr"`
}

// ProtocolConfig holds the two operator-tunable protocol knobs: the
// NACK/retransmit period and the retry budget.
type ProtocolConfig struct {
	RetransmitInterval time.Duration `yaml:"retransmit_interval"`
	MaxLostFrames      int           `yaml:"max_lost_frames"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	OutputFile string `yaml:"output_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// RegistryConfig holds the optional Redis-backed active-connection registry.
type RegistryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	DB      int    `yaml:"db"`
}

// AuditConfig holds the optional Postgres-backed transfer audit log.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// StatsConfig holds the optional WebSocket stats feed server.
type StatsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoadConfig reads and validates a YAML config file, filling in defaults for
// any unset field.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return &c, nil
}

func (c *Config) setDefaults() {
	if c.Listen.Addr == "" {
		c.Listen.Addr = "0.0.0.0:9004"
	}
	if c.Protocol.RetransmitInterval == 0 {
		c.Protocol.RetransmitInterval = 500 * time.Microsecond
	}
	if c.Protocol.MaxLostFrames == 0 {
		c.Protocol.MaxLostFrames = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Registry.Addr == "" {
		c.Registry.Addr = "localhost:6379"
	}
	if c.Stats.Addr == "" {
		c.Stats.Addr = "127.0.0.1:9090"
	}
}

func (c *Config) validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	if c.Protocol.MaxLostFrames <= 0 {
		return fmt.Errorf("max_lost_frames must be positive, got %d", c.Protocol.MaxLostFrames)
	}
	if c.Protocol.RetransmitInterval <= 0 {
		return fmt.Errorf("retransmit_interval must be positive, got %v", c.Protocol.RetransmitInterval)
	}
	if c.Audit.Enabled && c.Audit.DSN == "" {
		return fmt.Errorf("audit.dsn is required when audit.enabled is true")
	}
	return nil
}

// GenerateDefaultConfig returns a Config populated entirely with defaults,
// suitable for writing out as a starter file.
func GenerateDefaultConfig() *Config {
	var c Config
	c.setDefaults()
	return &c
}

// WriteConfigFile marshals cfg to YAML and writes it to path.
func WriteConfigFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %q: %w", path, err)
	}
	return nil
}
