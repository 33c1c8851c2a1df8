package alert

import (
	"sync"

	"netpilot/internal/domain"
)

// MemoryRules is an in-memory RuleSource. Replace swaps the whole rule set,
// which is how a reloaded rules file is applied.
type MemoryRules struct {
	mu    sync.RWMutex
	rules []domain.AlertRule
}

// NewMemoryRules creates a rule set
func NewMemoryRules(rules ...domain.AlertRule) *MemoryRules {
	m := &MemoryRules{}
	m.Replace(rules)
	return m
}

// RulesFor returns the rules bound to the device
func (m *MemoryRules) RulesFor(deviceID string) []domain.AlertRule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.AlertRule
	for _, r := range m.rules {
		if r.DeviceID == deviceID {
			out = append(out, r)
		}
	}
	return out
}

// All returns every rule
func (m *MemoryRules) All() []domain.AlertRule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.AlertRule, len(m.rules))
	copy(out, m.rules)
	return out
}

// Replace swaps the rule set
func (m *MemoryRules) Replace(rules []domain.AlertRule) {
	cp := make([]domain.AlertRule, len(rules))
	copy(cp, rules)
	m.mu.Lock()
	m.rules = cp
	m.mu.Unlock()
}
