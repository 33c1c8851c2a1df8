// Package loader reads alert rule files and applies them to the live rule
// set.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"netpilot/internal/alert"
	"netpilot/internal/domain"
)

// ruleNamespace seeds name-based rule IDs so a rule keeps its ID across
// reloads as long as its definition does not change
var ruleNamespace = uuid.MustParse("6f1c2a94-3b7e-4d2a-9c51-8e0f4b7d2a10")

// RulesFileYAML represents the rules file structure
type RulesFileYAML struct {
	Version int        `yaml:"version"`
	Rules   []RuleYAML `yaml:"rules"`
}

// RuleYAML represents one rule in the file. Device is a device ID, name, or
// address.
type RuleYAML struct {
	ID        string `yaml:"id,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Device    string `yaml:"device"`
	Metric    string `yaml:"metric"`
	Target    string `yaml:"target"`
	Condition string `yaml:"condition,omitempty"`
	Expected  string `yaml:"expected"`
}

// LoadRules loads rules from a YAML file. DeviceID holds the device
// reference as written.
func LoadRules(path string) ([]domain.AlertRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseRules(data)
}

// ParseRules parses rules from YAML bytes
func ParseRules(data []byte) ([]domain.AlertRule, error) {
	var file RulesFileYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	rules := make([]domain.AlertRule, 0, len(file.Rules))
	seen := make(map[string]bool)
	for i, r := range file.Rules {
		rule, err := convertRule(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("rule %d: duplicate id %s", i+1, rule.ID)
		}
		seen[rule.ID] = true
		rules = append(rules, rule)
	}
	return rules, nil
}

func convertRule(r RuleYAML) (domain.AlertRule, error) {
	if strings.TrimSpace(r.Device) == "" {
		return domain.AlertRule{}, errors.New("missing device")
	}
	if r.Metric == "" {
		return domain.AlertRule{}, errors.New("missing metric")
	}
	if r.Target == "" {
		return domain.AlertRule{}, errors.New("missing target")
	}

	rule := domain.AlertRule{
		ID:        r.ID,
		Name:      r.Name,
		DeviceID:  strings.TrimSpace(r.Device),
		Metric:    domain.Metric(r.Metric),
		Target:    r.Target,
		Condition: domain.Condition(r.Condition),
		Expected:  r.Expected,
	}
	if rule.Condition == "" {
		rule.Condition = domain.ConditionNotEquals
	}
	if rule.ID == "" {
		key := strings.Join([]string{rule.DeviceID, string(rule.Metric), rule.Target, string(rule.Condition), rule.Expected}, "\x00")
		rule.ID = uuid.NewSHA1(ruleNamespace, []byte(key)).String()
	}
	return rule, nil
}

// ExportRules exports rules to the file format
func ExportRules(rules []domain.AlertRule) ([]byte, error) {
	file := RulesFileYAML{Version: 1, Rules: make([]RuleYAML, 0, len(rules))}
	for _, r := range rules {
		file.Rules = append(file.Rules, RuleYAML{
			ID:        r.ID,
			Name:      r.Name,
			Device:    r.DeviceID,
			Metric:    string(r.Metric),
			Target:    r.Target,
			Condition: string(r.Condition),
			Expected:  r.Expected,
		})
	}
	return yaml.Marshal(&file)
}

// DeviceFinder resolves a device reference from a rules file
type DeviceFinder interface {
	FindDevice(ctx context.Context, ref string) (domain.Device, error)
}

// RuleLister supplies rules kept outside the file, such as ones added from
// the command line
type RuleLister interface {
	ListAlertRules(ctx context.Context) ([]domain.AlertRule, error)
}

// RulesLoader rebuilds the live rule set from the rules file and the stored
// rules
type RulesLoader struct {
	path    string
	devices DeviceFinder
	stored  RuleLister
	target  *alert.MemoryRules
	logger  *zap.Logger
}

// Option configures a RulesLoader
type Option func(*RulesLoader)

// WithStoredRules adds rules from a store to every reload
func WithStoredRules(l RuleLister) Option {
	return func(r *RulesLoader) {
		r.stored = l
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *RulesLoader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRulesLoader creates a loader that writes into target. An empty path
// means there is no rules file.
func NewRulesLoader(path string, devices DeviceFinder, target *alert.MemoryRules, opts ...Option) *RulesLoader {
	l := &RulesLoader{
		path:    path,
		devices: devices,
		target:  target,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.Named("rules")
	return l
}

// Reload reads the rules file, resolves device references, and swaps the
// live rule set. A file that fails to parse leaves the previous rules in
// place. Rules naming an unknown device are skipped with a warning.
func (l *RulesLoader) Reload(ctx context.Context) (int, error) {
	var rules []domain.AlertRule

	if l.path != "" {
		fileRules, err := LoadRules(l.path)
		if err != nil {
			return 0, fmt.Errorf("load %s: %w", l.path, err)
		}
		for _, r := range fileRules {
			device, err := l.devices.FindDevice(ctx, r.DeviceID)
			if err != nil {
				l.logger.Warn("rule skipped",
					zap.String("rule", r.ID),
					zap.String("device", r.DeviceID),
					zap.Error(err),
				)
				continue
			}
			r.DeviceID = device.ID
			rules = append(rules, r)
		}
	}

	if l.stored != nil {
		stored, err := l.stored.ListAlertRules(ctx)
		if err != nil {
			return 0, fmt.Errorf("list stored rules: %w", err)
		}
		rules = append(rules, stored...)
	}

	l.target.Replace(rules)
	l.logger.Info("rules loaded", zap.Int("count", len(rules)), zap.String("path", l.path))
	return len(rules), nil
}
