package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version     int                          `yaml:"version"`
	Posture     Posture                      `yaml:"posture"`
	Behavior    *BehaviorOverride            `yaml:"behavior,omitempty"`
	Database    DatabaseConfig               `yaml:"database"`
	Logging     LoggingConfig                `yaml:"logging"`
	SSH         SSHConfig                    `yaml:"ssh"`
	Discovery   DiscoveryConfig              `yaml:"discovery"`
	Monitor     MonitorConfig                `yaml:"monitor"`
	Metrics     MetricsConfig                `yaml:"metrics"`
	Credentials map[string]CredentialProfile `yaml:"credentials,omitempty"`

	// DefaultCredential names the profile used by devices without a
	// credential_ref
	DefaultCredential string `yaml:"default_credential,omitempty"`
}

// BehaviorOverride allows overriding posture defaults
type BehaviorOverride struct {
	ProbeTimeout       *Duration `yaml:"probe_timeout,omitempty"`
	ConnectTimeout     *Duration `yaml:"connect_timeout,omitempty"`
	CommandTimeout     *Duration `yaml:"command_timeout,omitempty"`
	SlowCommandTimeout *Duration `yaml:"slow_command_timeout,omitempty"`
	MassWorkers        *int      `yaml:"mass_workers,omitempty"`
	DiscoveryWorkers   *int      `yaml:"discovery_workers,omitempty"`
	DiscoveryRate      *float64  `yaml:"discovery_rate,omitempty"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig selects the zap configuration
type LoggingConfig struct {
	Level       string `yaml:"level"`            // debug, info, warn, error
	Format      string `yaml:"format,omitempty"` // json or console
	Development bool   `yaml:"development,omitempty"`
}

// SSHConfig holds transport settings
type SSHConfig struct {
	KnownHostsFile string `yaml:"known_hosts_file,omitempty"` // empty skips host key checking
}

// DiscoveryConfig holds sweep defaults
type DiscoveryConfig struct {
	Port    int  `yaml:"port,omitempty"`
	UseNmap bool `yaml:"use_nmap,omitempty"`
}

// MonitorConfig holds monitoring defaults
type MonitorConfig struct {
	Interval  Duration `yaml:"interval"`
	RulesFile string   `yaml:"rules_file,omitempty"`
}

// MetricsConfig holds the metrics endpoint settings
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"` // e.g. ":9273"; empty disables
}

// CredentialProfile says where to find the secrets for a group of devices.
// Secrets never live in the config file itself.
type CredentialProfile struct {
	Username      string `yaml:"username,omitempty"`
	UsernameEnv   string `yaml:"username_env,omitempty"`
	PasswordEnv   string `yaml:"password_env,omitempty"`
	KeyFile       string `yaml:"key_file,omitempty"`
	PassphraseEnv string `yaml:"passphrase_env,omitempty"`
	UseAgent      bool   `yaml:"use_agent,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
