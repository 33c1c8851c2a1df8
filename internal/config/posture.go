package config

import "time"

// Posture defines behavioral aggressiveness
type Posture string

const (
	PostureCautious   Posture = "cautious"   // Slow links, fragile control planes
	PostureBalanced   Posture = "balanced"   // Default
	PostureAggressive Posture = "aggressive" // Fast lab networks
)

// ParsePosture converts a string to Posture, defaulting to PostureBalanced
func ParsePosture(s string) Posture {
	switch s {
	case "cautious":
		return PostureCautious
	case "balanced":
		return PostureBalanced
	case "aggressive":
		return PostureAggressive
	default:
		return PostureBalanced
	}
}

// BehaviorProfile defines timing and concurrency settings
type BehaviorProfile struct {
	ProbeTimeout       time.Duration `yaml:"probe_timeout"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout"`
	CommandTimeout     time.Duration `yaml:"command_timeout"`
	SlowCommandTimeout time.Duration `yaml:"slow_command_timeout"` // full config dumps, saves
	MassWorkers        int           `yaml:"mass_workers"`
	DiscoveryWorkers   int           `yaml:"discovery_workers"`
	DiscoveryRate      float64       `yaml:"discovery_rate"` // probes per second
}

// PostureProfiles maps postures to their default behavior profiles
var PostureProfiles = map[Posture]BehaviorProfile{
	PostureCautious: {
		ProbeTimeout:       3 * time.Second,
		ConnectTimeout:     20 * time.Second,
		CommandTimeout:     60 * time.Second,
		SlowCommandTimeout: 5 * time.Minute,
		MassWorkers:        4,
		DiscoveryWorkers:   4,
		DiscoveryRate:      5,
	},
	PostureBalanced: {
		ProbeTimeout:       2 * time.Second,
		ConnectTimeout:     10 * time.Second,
		CommandTimeout:     30 * time.Second,
		SlowCommandTimeout: 2 * time.Minute,
		MassWorkers:        8,
		DiscoveryWorkers:   16,
		DiscoveryRate:      20,
	},
	PostureAggressive: {
		ProbeTimeout:       1 * time.Second,
		ConnectTimeout:     5 * time.Second,
		CommandTimeout:     15 * time.Second,
		SlowCommandTimeout: time.Minute,
		MassWorkers:        32,
		DiscoveryWorkers:   64,
		DiscoveryRate:      0, // unlimited
	},
}

// GetProfile returns the behavior profile for a posture
func (p Posture) GetProfile() BehaviorProfile {
	if profile, ok := PostureProfiles[p]; ok {
		return profile
	}
	return PostureProfiles[PostureBalanced]
}
