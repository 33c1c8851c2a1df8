package codec

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"netpilot/internal/domain"
)

func sampleDevices() []domain.Device {
	return []domain.Device{
		{Name: "core-1", Address: "10.0.0.1", Vendor: domain.VendorCiscoIOS, CredentialRef: "lab"},
		{Name: "edge-2", Address: "10.0.0.2", Port: 2222, Vendor: domain.VendorJuniperJunos},
		{Name: "10.0.0.3", Address: "10.0.0.3", Vendor: domain.VendorMikrotikRouterOS},
	}
}

func byName(devices []domain.Device) map[string]domain.Device {
	out := make(map[string]domain.Device, len(devices))
	for _, d := range devices {
		out[d.Name] = d
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	for _, format := range Formats() {
		t.Run(format, func(t *testing.T) {
			c, err := ForFormat(format)
			if err != nil {
				t.Fatalf("ForFormat(%q) error = %v", format, err)
			}

			var buf bytes.Buffer
			if err := c.Export(sampleDevices(), &buf); err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			got, err := c.Parse(&buf)
			if err != nil {
				t.Fatalf("Parse() error = %v\n%s", err, buf.String())
			}

			want := byName(sampleDevices())
			have := byName(got)
			if len(have) != len(want) {
				t.Fatalf("Parse() returned %d devices, want %d", len(have), len(want))
			}
			for name, w := range want {
				h := have[name]
				if h.Address != w.Address || h.Vendor != w.Vendor || h.EffectivePort() != w.EffectivePort() || h.CredentialRef != w.CredentialRef {
					t.Errorf("%s = %+v, want %+v", name, h, w)
				}
			}
		})
	}
}

func TestForFormatUnknown(t *testing.T) {
	if _, err := ForFormat("csv"); err == nil {
		t.Error("ForFormat(csv) should fail")
	}
	if got := Formats(); !reflect.DeepEqual(got, []string{"ansible", "json", "yaml"}) {
		t.Errorf("Formats() = %v", got)
	}
}

func TestAnsibleExportStructure(t *testing.T) {
	var buf bytes.Buffer
	if err := NewAnsibleCodec().Export(sampleDevices(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"cisco_ios:",
		"ansible_network_os: cisco.ios.ios",
		"ansible_network_os: junipernetworks.junos.junos",
		"ansible_network_os: community.routeros.routeros",
		"ansible_connection: ansible.netcommon.network_cli",
		"ansible_host: 10.0.0.1",
		"ansible_port: 2222",
		"netpilot_credential: lab",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ansible_host: 10.0.0.3") {
		t.Errorf("host named by its address should not repeat ansible_host:\n%s", out)
	}
}

func TestAnsibleParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []domain.Device
		wantErr string
	}{
		{
			name: "group vars and short aliases",
			input: `
all:
  vars:
    netpilot_credential: default
  children:
    switches:
      vars:
        ansible_network_os: ios
      hosts:
        sw1:
          ansible_host: 192.0.2.10
        sw2:
          ansible_host: 192.0.2.11
          netpilot_credential: access
    edge:
      hosts:
        mx1:
          ansible_host: 192.0.2.1
          ansible_network_os: junos
          ansible_port: 830
  hosts:
    192.0.2.50:
      ansible_network_os: community.routeros.routeros
`,
			want: []domain.Device{
				{Name: "mx1", Address: "192.0.2.1", Port: 830, Vendor: domain.VendorJuniperJunos, CredentialRef: "default"},
				{Name: "sw1", Address: "192.0.2.10", Vendor: domain.VendorCiscoIOS, CredentialRef: "default"},
				{Name: "sw2", Address: "192.0.2.11", Vendor: domain.VendorCiscoIOS, CredentialRef: "access"},
				{Name: "192.0.2.50", Address: "192.0.2.50", Vendor: domain.VendorMikrotikRouterOS, CredentialRef: "default"},
			},
		},
		{
			name: "missing network os",
			input: `
all:
  hosts:
    fw1:
      ansible_host: 192.0.2.9
`,
			wantErr: "no ansible_network_os",
		},
		{
			name: "unsupported network os",
			input: `
all:
  hosts:
    fw1:
      ansible_network_os: vyos.vyos.vyos
`,
			wantErr: "unsupported ansible_network_os",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewAnsibleCodec().Parse(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Parse() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() =\n%+v\nwant\n%+v", got, tt.want)
			}
		})
	}
}

func TestParseValidates(t *testing.T) {
	tests := []struct {
		name   string
		format string
		input  string
	}{
		{name: "yaml unknown vendor", format: "yaml", input: "devices:\n  - name: x\n    address: 10.0.0.1\n    vendor: vyos\n"},
		{name: "yaml missing address", format: "yaml", input: "devices:\n  - name: x\n    vendor: cisco_ios\n"},
		{name: "json bad port", format: "json", input: `{"devices":[{"name":"x","address":"10.0.0.1","vendor":"cisco_ios","port":70000}]}`},
		{name: "json malformed", format: "json", input: `{"devices":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ForFormat(tt.format)
			if err != nil {
				t.Fatalf("ForFormat() error = %v", err)
			}
			if _, err := c.Parse(strings.NewReader(tt.input)); err == nil {
				t.Error("Parse() expected error")
			}
		})
	}
}
