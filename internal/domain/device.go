package domain

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultSSHPort is used when a device has no explicit port
const DefaultSSHPort = 22

// VendorFamily identifies a network operating system lineage
type VendorFamily string

const (
	VendorCiscoIOS         VendorFamily = "cisco_ios"
	VendorJuniperJunos     VendorFamily = "juniper_junos"
	VendorMikrotikRouterOS VendorFamily = "mikrotik_routeros"
)

// VendorFamilies lists every known family
func VendorFamilies() []VendorFamily {
	return []VendorFamily{VendorCiscoIOS, VendorJuniperJunos, VendorMikrotikRouterOS}
}

// ParseVendorFamily validates a vendor tag
func ParseVendorFamily(s string) (VendorFamily, error) {
	for _, v := range VendorFamilies() {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown vendor family %q", s)
}

// Device represents a managed network device
type Device struct {
	ID            string       `json:"id" yaml:"id"`
	Name          string       `json:"name" yaml:"name"`
	Address       string       `json:"address" yaml:"address"`
	Port          int          `json:"port,omitempty" yaml:"port,omitempty"`
	Vendor        VendorFamily `json:"vendor" yaml:"vendor"`
	CredentialRef string       `json:"credential_ref,omitempty" yaml:"credential_ref,omitempty"`
	Facts         DeviceFacts  `json:"facts" yaml:"facts,omitempty"`
	CreatedAt     time.Time    `json:"created_at" yaml:"-"`
	UpdatedAt     time.Time    `json:"updated_at" yaml:"-"`
}

// DeviceFacts holds values learned from the device after connecting
type DeviceFacts struct {
	OSVersion string     `json:"os_version,omitempty" yaml:"os_version,omitempty"`
	Model     string     `json:"model,omitempty" yaml:"model,omitempty"`
	Hostname  string     `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	LearnedAt *time.Time `json:"learned_at,omitempty" yaml:"learned_at,omitempty"`
}

// Merge overlays non-empty fields of update onto f
func (f DeviceFacts) Merge(update DeviceFacts) DeviceFacts {
	if update.OSVersion != "" {
		f.OSVersion = update.OSVersion
	}
	if update.Model != "" {
		f.Model = update.Model
	}
	if update.Hostname != "" {
		f.Hostname = update.Hostname
	}
	if update.LearnedAt != nil {
		f.LearnedAt = update.LearnedAt
	}
	return f
}

// EffectivePort returns the SSH port, falling back to DefaultSSHPort
func (d Device) EffectivePort() int {
	if d.Port <= 0 {
		return DefaultSSHPort
	}
	return d.Port
}

// Key is the session identity of the device
func (d Device) Key() string {
	return net.JoinHostPort(d.Address, strconv.Itoa(d.EffectivePort()))
}

// Label is the human-readable identity used in output blocks and logs
func (d Device) Label() string {
	if d.Name == "" || d.Name == d.Address {
		return d.Address
	}
	return fmt.Sprintf("%s (%s)", d.Name, d.Address)
}

// Credentials are the secrets used to open a session
type Credentials struct {
	Username   string `json:"username" yaml:"username"`
	Password   string `json:"-" yaml:"-"`
	PrivateKey []byte `json:"-" yaml:"-"`
	Passphrase string `json:"-" yaml:"-"`
	UseAgent   bool   `json:"use_agent,omitempty" yaml:"use_agent,omitempty"`
}

// HasSecret reports whether any authentication method is available
func (c Credentials) HasSecret() bool {
	return c.Password != "" || len(c.PrivateKey) > 0 || c.UseAgent
}

// CredentialSummary is a safe view of credentials (no sensitive data)
type CredentialSummary struct {
	Username   string `json:"username"`
	Password   bool   `json:"password"`
	PrivateKey bool   `json:"private_key"`
	Agent      bool   `json:"agent"`
}

// ToSummary creates a safe summary view of the credentials
func (c Credentials) ToSummary() CredentialSummary {
	return CredentialSummary{
		Username:   c.Username,
		Password:   c.Password != "",
		PrivateKey: len(c.PrivateKey) > 0,
		Agent:      c.UseAgent,
	}
}
