package alert

import (
	"strings"
	"testing"

	"netpilot/internal/domain"
	"netpilot/internal/vendor"
)

func eth0Rule() domain.AlertRule {
	return domain.AlertRule{
		ID:        "r1",
		Name:      "uplink down",
		DeviceID:  "dev-1",
		Metric:    domain.MetricInterfaceStatus,
		Target:    "eth0",
		Condition: domain.ConditionNotEquals,
		Expected:  "up",
	}
}

func snapshot(ifaces ...domain.Interface) domain.Snapshot {
	return domain.Snapshot{Interfaces: ifaces}
}

func TestEvaluateInterfaceStatus(t *testing.T) {
	tests := []struct {
		name   string
		iface  domain.Interface
		device string
		want   int
	}{
		{name: "down fires", iface: domain.Interface{Name: "eth0", OperStatus: "down"}, device: "dev-1", want: 1},
		{name: "up is quiet", iface: domain.Interface{Name: "eth0", OperStatus: "up"}, device: "dev-1", want: 0},
		{name: "other interface", iface: domain.Interface{Name: "eth1", OperStatus: "down"}, device: "dev-1", want: 0},
		{name: "other device", iface: domain.Interface{Name: "eth0", OperStatus: "down"}, device: "dev-2", want: 0},
	}

	e := NewEvaluator(NewMemoryRules(eth0Rule()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Evaluate(tt.device, snapshot(tt.iface))
			if len(got) != tt.want {
				t.Fatalf("Evaluate() = %d alerts, want %d", len(got), tt.want)
			}
			if tt.want == 1 {
				a := got[0]
				if a.RuleID != "r1" || a.Actual != "down" || a.Expected != "up" || a.Target != "eth0" {
					t.Errorf("alert = %+v", a)
				}
				if !strings.Contains(a.Message, "eth0") {
					t.Errorf("Message = %q, want interface name", a.Message)
				}
			}
		})
	}
}

func TestEvaluateIsStateless(t *testing.T) {
	e := NewEvaluator(NewMemoryRules(eth0Rule()))
	snap := snapshot(domain.Interface{Name: "eth0", OperStatus: "down"})

	for i := 0; i < 3; i++ {
		if got := e.Evaluate("dev-1", snap); len(got) != 1 {
			t.Fatalf("call %d: Evaluate() = %d alerts, want 1", i+1, len(got))
		}
	}
}

func TestEvaluateSkipsUnknownKinds(t *testing.T) {
	unknownCond := eth0Rule()
	unknownCond.ID = "r2"
	unknownCond.Condition = "greater_than"
	unknownMetric := eth0Rule()
	unknownMetric.ID = "r3"
	unknownMetric.Metric = "cpu_load"

	e := NewEvaluator(NewMemoryRules(unknownCond, unknownMetric))
	got := e.Evaluate("dev-1", snapshot(domain.Interface{Name: "eth0", OperStatus: "down"}))
	if len(got) != 0 {
		t.Errorf("Evaluate() = %+v, want none", got)
	}
}

func TestPluggableConditionAndMetric(t *testing.T) {
	rule := domain.AlertRule{
		ID:        "desc",
		DeviceID:  "dev-1",
		Metric:    "interface_description",
		Target:    "ge-0/0/0",
		Condition: "equals",
		Expected:  "spare",
	}
	e := NewEvaluator(NewMemoryRules(rule),
		WithCondition("equals", func(actual, expected string) bool { return actual == expected }),
		WithMetric("interface_description", func(s domain.Snapshot, target string) (string, bool) {
			iface, ok := s.FindInterface(target)
			return iface.Description, ok
		}),
	)

	got := e.Evaluate("dev-1", snapshot(domain.Interface{Name: "ge-0/0/0", Description: "spare"}))
	if len(got) != 1 || got[0].Actual != "spare" {
		t.Errorf("Evaluate() = %+v, want one alert", got)
	}
}

func TestBuiltInMetrics(t *testing.T) {
	iface := domain.Interface{Name: "ether1", Address: "10.0.0.1/24", OperStatus: "up", AdminStatus: "down"}
	tests := []struct {
		metric   domain.Metric
		expected string
		want     int
	}{
		{domain.MetricInterfaceAdminStatus, "up", 1},
		{domain.MetricInterfaceAdminStatus, "down", 0},
		{domain.MetricInterfaceAddress, "10.0.0.1/24", 0},
		{domain.MetricInterfaceAddress, "10.0.0.2/24", 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.metric)+"/"+tt.expected, func(t *testing.T) {
			rule := domain.AlertRule{ID: "m", DeviceID: "d", Metric: tt.metric, Target: "ether1", Condition: domain.ConditionNotEquals, Expected: tt.expected}
			got := NewEvaluator(NewMemoryRules(rule)).Evaluate("d", snapshot(iface))
			if len(got) != tt.want {
				t.Errorf("Evaluate() = %d alerts, want %d", len(got), tt.want)
			}
		})
	}
}

func TestAdminStatusFromParsedBrief(t *testing.T) {
	tests := []struct {
		name    string
		adapter vendor.Adapter
		brief   string
		upPort  string
		offPort string
	}{
		{
			name:    "cisco",
			adapter: vendor.NewCiscoIOS(),
			brief: "Interface              IP-Address      OK? Method Status                Protocol\n" +
				"GigabitEthernet0/1     10.0.0.1        YES manual up                    down\n" +
				"GigabitEthernet0/2     unassigned      YES unset  administratively down down\n",
			upPort:  "GigabitEthernet0/1",
			offPort: "GigabitEthernet0/2",
		},
		{
			name:    "junos",
			adapter: vendor.NewJuniperJunos(),
			brief: "Interface               Admin Link Proto    Local                 Remote\n" +
				"ge-0/0/1                up    down\n" +
				"ge-0/0/2                down  down\n",
			upPort:  "ge-0/0/1",
			offPort: "ge-0/0/2",
		},
		{
			name:    "routeros",
			adapter: vendor.NewMikrotikRouterOS(),
			brief: " 0    name=ether1 default-name=ether1 type=ether mtu=1500\n" +
				" 1  X name=ether2 default-name=ether2 type=ether mtu=1500\n",
			upPort:  "ether1",
			offPort: "ether2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := NewMemoryRules(
				domain.AlertRule{ID: "up", DeviceID: "d", Metric: domain.MetricInterfaceAdminStatus, Target: tt.upPort, Condition: domain.ConditionNotEquals, Expected: "up"},
				domain.AlertRule{ID: "off", DeviceID: "d", Metric: domain.MetricInterfaceAdminStatus, Target: tt.offPort, Condition: domain.ConditionNotEquals, Expected: "up"},
			)
			got := NewEvaluator(rules).Evaluate("d", snapshot(tt.adapter.ParseInterfaceBrief(tt.brief)...))
			if len(got) != 1 || got[0].RuleID != "off" {
				t.Fatalf("Evaluate() = %+v, want one alert for %s", got, tt.offPort)
			}
			if got[0].Actual != "down" {
				t.Errorf("Actual = %q, want down", got[0].Actual)
			}
		})
	}
}

func TestMemoryRulesReplace(t *testing.T) {
	rules := NewMemoryRules(eth0Rule())
	if len(rules.RulesFor("dev-1")) != 1 {
		t.Fatal("RulesFor() missing rule")
	}

	rules.Replace(nil)
	if len(rules.All()) != 0 {
		t.Errorf("All() after Replace(nil) = %d rules, want 0", len(rules.All()))
	}
}
