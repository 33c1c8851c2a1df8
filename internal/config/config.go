// Package config provides configuration management for netpilot.
//
// The config file holds operator settings and credential profiles; the
// device inventory lives in the database.
//
// Config file locations (priority order):
//  1. $NETPILOT_CONFIG
//  2. ./netpilot.yaml
//  3. $XDG_CONFIG_HOME/netpilot/config.yaml (~/.config when unset)
//  4. /etc/netpilot/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"netpilot/internal/domain"
)

const (
	defaultDatabasePath    = "./netpilot.db"
	defaultMonitorInterval = time.Minute
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Parse decodes and validates config bytes
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version:   1,
		Posture:   PostureBalanced,
		Database:  DatabaseConfig{Path: defaultDatabasePath},
		Logging:   LoggingConfig{Level: "info", Format: "console"},
		Discovery: DiscoveryConfig{Port: domain.DefaultSSHPort},
		Monitor:   MonitorConfig{Interval: Duration(defaultMonitorInterval)},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Posture == "" {
		c.Posture = PostureBalanced
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDatabasePath
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Discovery.Port == 0 {
		c.Discovery.Port = domain.DefaultSSHPort
	}
	if c.Monitor.Interval == 0 {
		c.Monitor.Interval = Duration(defaultMonitorInterval)
	}
}

// Validate rejects settings that would fail later at run time
func (c *Config) Validate() error {
	if _, ok := PostureProfiles[c.Posture]; !ok {
		return fmt.Errorf("unknown posture %q", c.Posture)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	if c.DefaultCredential != "" {
		if _, ok := c.Credentials[c.DefaultCredential]; !ok {
			return fmt.Errorf("default_credential %q is not a defined profile", c.DefaultCredential)
		}
	}
	if c.Discovery.Port < 1 || c.Discovery.Port > 65535 {
		return fmt.Errorf("discovery port %d out of range", c.Discovery.Port)
	}
	return nil
}

// EffectiveBehavior returns behavior profile with overrides applied
func (c *Config) EffectiveBehavior() BehaviorProfile {
	base := c.Posture.GetProfile()

	if c.Behavior == nil {
		return base
	}

	if c.Behavior.ProbeTimeout != nil {
		base.ProbeTimeout = c.Behavior.ProbeTimeout.Duration()
	}
	if c.Behavior.ConnectTimeout != nil {
		base.ConnectTimeout = c.Behavior.ConnectTimeout.Duration()
	}
	if c.Behavior.CommandTimeout != nil {
		base.CommandTimeout = c.Behavior.CommandTimeout.Duration()
	}
	if c.Behavior.SlowCommandTimeout != nil {
		base.SlowCommandTimeout = c.Behavior.SlowCommandTimeout.Duration()
	}
	if c.Behavior.MassWorkers != nil {
		base.MassWorkers = *c.Behavior.MassWorkers
	}
	if c.Behavior.DiscoveryWorkers != nil {
		base.DiscoveryWorkers = *c.Behavior.DiscoveryWorkers
	}
	if c.Behavior.DiscoveryRate != nil {
		base.DiscoveryRate = *c.Behavior.DiscoveryRate
	}

	return base
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	behavior := c.EffectiveBehavior()

	summary := fmt.Sprintf("Posture: %s, Database: %s\n", c.Posture, c.Database.Path)
	summary += fmt.Sprintf("Connect: %s, Command: %s, Slow: %s, Probe: %s\n",
		behavior.ConnectTimeout, behavior.CommandTimeout, behavior.SlowCommandTimeout, behavior.ProbeTimeout)
	summary += fmt.Sprintf("Mass workers: %d, Discovery workers: %d\n",
		behavior.MassWorkers, behavior.DiscoveryWorkers)
	summary += fmt.Sprintf("Credential profiles (%d):", len(c.Credentials))
	for _, name := range sortedKeys(c.Credentials) {
		summary += fmt.Sprintf(" %s", name)
	}

	return summary
}
