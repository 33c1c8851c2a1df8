package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"netpilot/internal/alert"
	"netpilot/internal/domain"
)

const sampleRules = `version: 1
rules:
  - name: uplink down
    device: core-1
    metric: interface_status
    target: Gi0/1
    expected: up
  - id: fixed-id
    device: 10.0.0.2
    metric: interface_address
    target: ge-0/0/0.0
    condition: not_equals
    expected: 192.0.2.1/30
`

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(sampleRules))
	if err != nil {
		t.Fatalf("ParseRules() error = %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("ParseRules() = %d rules, want 2", len(rules))
	}

	first := rules[0]
	if first.Condition != domain.ConditionNotEquals {
		t.Errorf("default condition = %q, want not_equals", first.Condition)
	}
	if first.ID == "" {
		t.Error("rule without id got no generated id")
	}
	if first.DeviceID != "core-1" || first.Metric != domain.MetricInterfaceStatus || first.Target != "Gi0/1" {
		t.Errorf("rule = %+v", first)
	}
	if rules[1].ID != "fixed-id" {
		t.Errorf("explicit id = %q, want fixed-id", rules[1].ID)
	}

	again, err := ParseRules([]byte(sampleRules))
	if err != nil {
		t.Fatalf("ParseRules() error = %v", err)
	}
	if again[0].ID != first.ID {
		t.Error("generated id changed between parses of the same file")
	}
}

func TestParseRulesErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "missing device", input: "rules:\n  - metric: interface_status\n    target: eth0\n", wantErr: "missing device"},
		{name: "missing metric", input: "rules:\n  - device: r1\n    target: eth0\n", wantErr: "missing metric"},
		{name: "missing target", input: "rules:\n  - device: r1\n    metric: interface_status\n", wantErr: "missing target"},
		{name: "duplicate id", input: "rules:\n  - {id: a, device: r1, metric: m, target: t}\n  - {id: a, device: r2, metric: m, target: t}\n", wantErr: "duplicate id"},
		{name: "not yaml", input: "rules: [", wantErr: "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.input))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ParseRules() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExportRules(t *testing.T) {
	rules, err := ParseRules([]byte(sampleRules))
	if err != nil {
		t.Fatalf("ParseRules() error = %v", err)
	}
	data, err := ExportRules(rules)
	if err != nil {
		t.Fatalf("ExportRules() error = %v", err)
	}
	back, err := ParseRules(data)
	if err != nil {
		t.Fatalf("ParseRules(exported) error = %v", err)
	}
	if fmt.Sprint(back) != fmt.Sprint(rules) {
		t.Errorf("exported rules changed:\n%v\n%v", back, rules)
	}
}

type fakeDevices map[string]domain.Device

func (f fakeDevices) FindDevice(_ context.Context, ref string) (domain.Device, error) {
	for _, d := range f {
		if d.ID == ref || d.Name == ref || d.Address == ref {
			return d, nil
		}
	}
	return domain.Device{}, fmt.Errorf("%w: device %s", domain.ErrNotFound, ref)
}

type fakeStored []domain.AlertRule

func (f fakeStored) ListAlertRules(context.Context) ([]domain.AlertRule, error) {
	return f, nil
}

func TestRulesLoaderReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(sampleRules), 0644); err != nil {
		t.Fatal(err)
	}

	devices := fakeDevices{
		"a": {ID: "dev-a", Name: "core-1", Address: "10.0.0.1"},
	}
	stored := fakeStored{{ID: "cli-1", DeviceID: "dev-a", Metric: domain.MetricInterfaceAdminStatus, Target: "Gi0/2", Condition: domain.ConditionNotEquals, Expected: "up"}}
	target := alert.NewMemoryRules()
	l := NewRulesLoader(path, devices, target, WithStoredRules(stored))

	n, err := l.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	// The rule for 10.0.0.2 names a device that is not in the inventory.
	if n != 2 {
		t.Errorf("Reload() = %d rules, want 2", n)
	}
	got := target.RulesFor("dev-a")
	if len(got) != 2 {
		t.Fatalf("RulesFor(dev-a) = %v, want 2 rules", got)
	}
	if got[0].Target != "Gi0/1" || got[1].ID != "cli-1" {
		t.Errorf("rules = %+v", got)
	}

	// A broken edit keeps the last good rule set.
	if err := os.WriteFile(path, []byte("rules: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(context.Background()); err == nil {
		t.Error("Reload() of a broken file should fail")
	}
	if len(target.All()) != 2 {
		t.Errorf("rule set changed after failed reload: %v", target.All())
	}
}

func TestRulesLoaderNoFile(t *testing.T) {
	target := alert.NewMemoryRules(domain.AlertRule{ID: "old", DeviceID: "x"})
	l := NewRulesLoader("", fakeDevices{}, target)

	n, err := l.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if n != 0 || len(target.All()) != 0 {
		t.Errorf("Reload() without sources = %d rules, target %v", n, target.All())
	}
}
