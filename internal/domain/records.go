package domain

// Link and administrative states used in Interface records
const (
	StatusUp   = "up"
	StatusDown = "down"
)

// Interface is one interface as seen by either the operational brief view
// (Name, Address, OperStatus) or the configuration view (Name, Description,
// AdminStatus, AccessVLAN).
type Interface struct {
	Name        string `json:"name" yaml:"name"`
	Address     string `json:"address,omitempty" yaml:"address,omitempty"`
	OperStatus  string `json:"oper_status,omitempty" yaml:"oper_status,omitempty"`
	AdminStatus string `json:"admin_status,omitempty" yaml:"admin_status,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	AccessVLAN  int    `json:"access_vlan,omitempty" yaml:"access_vlan,omitempty"`
}

// Vlan is a VLAN definition
type Vlan struct {
	ID     int    `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Status string `json:"status" yaml:"status"`
}

// Route is a static route; Destination is in CIDR form
type Route struct {
	Destination string `json:"destination" yaml:"destination"`
	NextHop     string `json:"next_hop" yaml:"next_hop"`
}

// AclFilter names an access list (Cisco), firewall filter (Junos) or chain (RouterOS)
type AclFilter struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
}

// Canonical ACL actions
const (
	ActionPermit = "permit"
	ActionDeny   = "deny"
)

// AclRule is one entry of an AclFilter
type AclRule struct {
	Order       int    `json:"order" yaml:"order"`
	Action      string `json:"action" yaml:"action"`
	Protocol    string `json:"protocol" yaml:"protocol"`
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
	Options     string `json:"options,omitempty" yaml:"options,omitempty"`
}

// VersionInfo is the parsed software version and hardware model
type VersionInfo struct {
	OSVersion string `json:"os_version" yaml:"os_version"`
	Model     string `json:"model" yaml:"model"`
}

// FullConfig is the configuration-state view of a device
type FullConfig struct {
	Hostname   string      `json:"hostname" yaml:"hostname"`
	Interfaces []Interface `json:"interfaces" yaml:"interfaces"`
}

// ComplianceStatus is the outcome of one compliance rule
type ComplianceStatus string

const (
	CompliancePass ComplianceStatus = "pass"
	ComplianceFail ComplianceStatus = "fail"
)

// ComplianceResult is the outcome of checking one rule against a configuration
type ComplianceResult struct {
	Rule    string           `json:"rule" yaml:"rule"`
	Status  ComplianceStatus `json:"status" yaml:"status"`
	Details string           `json:"details" yaml:"details"`
}

// InterfaceChange is the desired state handed to interface build commands.
// AccessVLAN zero leaves VLAN membership untouched.
type InterfaceChange struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	AccessVLAN  int    `json:"access_vlan,omitempty" yaml:"access_vlan,omitempty"`
}

// Snapshot is the set of records gathered by one poll of one device
type Snapshot struct {
	Interfaces []Interface `json:"interfaces"`
}

// FindInterface returns the interface with the given name
func (s Snapshot) FindInterface(name string) (Interface, bool) {
	for _, iface := range s.Interfaces {
		if iface.Name == name {
			return iface, true
		}
	}
	return Interface{}, false
}
