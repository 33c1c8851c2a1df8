package codec

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"netpilot/internal/domain"
)

const (
	ansibleConnection = "ansible.netcommon.network_cli"
	credentialVar     = "netpilot_credential"
)

// networkOS maps vendor families to ansible_network_os values
var networkOS = map[domain.VendorFamily]string{
	domain.VendorCiscoIOS:         "cisco.ios.ios",
	domain.VendorJuniperJunos:     "junipernetworks.junos.junos",
	domain.VendorMikrotikRouterOS: "community.routeros.routeros",
}

// networkOSAliases accepts the short platform names older inventories use
var networkOSAliases = map[string]domain.VendorFamily{
	"ios":      domain.VendorCiscoIOS,
	"junos":    domain.VendorJuniperJunos,
	"routeros": domain.VendorMikrotikRouterOS,
}

// AnsibleCodec handles Ansible inventory import/export
type AnsibleCodec struct{}

// NewAnsibleCodec creates a new Ansible codec
func NewAnsibleCodec() *AnsibleCodec {
	return &AnsibleCodec{}
}

// Format returns the codec format identifier
func (c *AnsibleCodec) Format() string {
	return "ansible"
}

// ansibleInventory represents the Ansible inventory structure
type ansibleInventory struct {
	All ansibleGroup `yaml:"all"`
}

type ansibleGroup struct {
	Children map[string]ansibleGroupDef `yaml:"children,omitempty"`
	Hosts    map[string]ansibleHost     `yaml:"hosts,omitempty"`
	Vars     map[string]interface{}     `yaml:"vars,omitempty"`
}

type ansibleGroupDef struct {
	Hosts map[string]ansibleHost `yaml:"hosts,omitempty"`
	Vars  map[string]interface{} `yaml:"vars,omitempty"`
}

type ansibleHost struct {
	AnsibleHost string                 `yaml:"ansible_host,omitempty"`
	Vars        map[string]interface{} `yaml:",inline"`
}

// vendorForNetworkOS resolves an ansible_network_os value
func vendorForNetworkOS(os string) (domain.VendorFamily, bool) {
	for family, name := range networkOS {
		if name == os {
			return family, true
		}
	}
	family, ok := networkOSAliases[os]
	return family, ok
}

// Parse imports devices from an Ansible inventory. The vendor comes from
// ansible_network_os on the host, then on its group, then on all.
func (c *AnsibleCodec) Parse(r io.Reader) ([]domain.Device, error) {
	var inv ansibleInventory
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&inv); err != nil {
		return nil, fmt.Errorf("failed to parse Ansible inventory: %w", err)
	}

	seen := make(map[string]bool)
	var devices []domain.Device

	groupNames := make([]string, 0, len(inv.All.Children))
	for name := range inv.All.Children {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	for _, groupName := range groupNames {
		group := inv.All.Children[groupName]
		for _, hostName := range sortedHosts(group.Hosts) {
			if seen[hostName] {
				continue
			}
			d, err := c.hostToDevice(hostName, group.Hosts[hostName], group.Vars, inv.All.Vars)
			if err != nil {
				return nil, err
			}
			seen[hostName] = true
			devices = append(devices, d)
		}
	}

	for _, hostName := range sortedHosts(inv.All.Hosts) {
		if seen[hostName] {
			continue
		}
		d, err := c.hostToDevice(hostName, inv.All.Hosts[hostName], nil, inv.All.Vars)
		if err != nil {
			return nil, err
		}
		seen[hostName] = true
		devices = append(devices, d)
	}

	if err := validate(devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// hostToDevice converts an Ansible host to a domain.Device
func (c *AnsibleCodec) hostToDevice(name string, host ansibleHost, groupVars, allVars map[string]interface{}) (domain.Device, error) {
	device := domain.Device{Name: name, Address: host.AnsibleHost}
	if device.Address == "" {
		device.Address = name
	}

	lookup := func(key string) (interface{}, bool) {
		for _, vars := range []map[string]interface{}{host.Vars, groupVars, allVars} {
			if v, ok := vars[key]; ok {
				return v, true
			}
		}
		return nil, false
	}

	osVal, ok := lookup("ansible_network_os")
	if !ok {
		return domain.Device{}, fmt.Errorf("host %s: no ansible_network_os", name)
	}
	family, ok := vendorForNetworkOS(fmt.Sprint(osVal))
	if !ok {
		return domain.Device{}, fmt.Errorf("host %s: unsupported ansible_network_os %q", name, osVal)
	}
	device.Vendor = family

	if v, ok := lookup("ansible_port"); ok {
		port, err := strconv.Atoi(fmt.Sprint(v))
		if err != nil {
			return domain.Device{}, fmt.Errorf("host %s: bad ansible_port %v", name, v)
		}
		device.Port = port
	}
	if v, ok := lookup(credentialVar); ok {
		device.CredentialRef = fmt.Sprint(v)
	}
	return device, nil
}

func sortedHosts(hosts map[string]ansibleHost) []string {
	names := make([]string, 0, len(hosts))
	for name := range hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Export writes one group per vendor family, with ansible_network_os and the
// network_cli connection set as group vars
func (c *AnsibleCodec) Export(devices []domain.Device, w io.Writer) error {
	inv := ansibleInventory{
		All: ansibleGroup{
			Children: make(map[string]ansibleGroupDef),
		},
	}

	for _, d := range devices {
		groupName := string(d.Vendor)
		group, ok := inv.All.Children[groupName]
		if !ok {
			osName, known := networkOS[d.Vendor]
			if !known {
				return fmt.Errorf("device %s: no ansible_network_os for vendor %q", d.Label(), d.Vendor)
			}
			group = ansibleGroupDef{
				Hosts: make(map[string]ansibleHost),
				Vars: map[string]interface{}{
					"ansible_network_os": osName,
					"ansible_connection": ansibleConnection,
				},
			}
			inv.All.Children[groupName] = group
		}

		host := ansibleHost{Vars: make(map[string]interface{})}
		if d.Address != d.Name {
			host.AnsibleHost = d.Address
		}
		if d.Port != 0 && d.Port != domain.DefaultSSHPort {
			host.Vars["ansible_port"] = d.Port
		}
		if d.CredentialRef != "" {
			host.Vars[credentialVar] = d.CredentialRef
		}
		group.Hosts[hostName(d)] = host
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}

	return nil
}

// hostName picks the inventory hostname; Ansible names may not contain
// spaces
func hostName(d domain.Device) string {
	name := d.Name
	if name == "" {
		name = d.Address
	}
	return strings.ReplaceAll(name, " ", "_")
}
