package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "NETPILOT_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "netpilot.yaml"
	// ConfigDirName is the directory under the user or system config root
	ConfigDirName = "netpilot"

	userConfigFile = "config.yaml"
)

// searchPaths lists config candidates, most specific first. The explicit
// environment path is only honored when the file exists.
func searchPaths() []string {
	paths := make([]string, 0, 4)
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	if abs, err := filepath.Abs(ConfigFileName); err == nil {
		paths = append(paths, abs)
	} else {
		paths = append(paths, ConfigFileName)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ConfigDirName, userConfigFile))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, userConfigFile))
}

// FindConfigPath returns the first existing config file, or "" when none
// exists:
//  1. $NETPILOT_CONFIG
//  2. ./netpilot.yaml
//  3. $XDG_CONFIG_HOME/netpilot/config.yaml (~/.config when unset)
//  4. /etc/netpilot/config.yaml
func FindConfigPath() string {
	for _, p := range searchPaths() {
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// DefaultConfigPath is where `settings init` writes a new file
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, ConfigDirName, userConfigFile)
	}
	return ConfigFileName
}

// EnsureConfigDir creates the parent directory of configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0o755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
