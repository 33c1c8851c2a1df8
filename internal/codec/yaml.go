package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"netpilot/internal/domain"
)

// YAMLCodec handles the native YAML inventory format
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlInventory represents the YAML structure for an inventory
type yamlInventory struct {
	Version int          `yaml:"version"`
	Devices []yamlDevice `yaml:"devices"`
}

type yamlDevice struct {
	Name          string `yaml:"name"`
	Address       string `yaml:"address"`
	Port          int    `yaml:"port,omitempty"`
	Vendor        string `yaml:"vendor"`
	CredentialRef string `yaml:"credential_ref,omitempty"`
}

// Parse imports devices from YAML
func (c *YAMLCodec) Parse(r io.Reader) ([]domain.Device, error) {
	var inv yamlInventory
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&inv); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	devices := make([]domain.Device, 0, len(inv.Devices))
	for _, yd := range inv.Devices {
		devices = append(devices, domain.Device{
			Name:          yd.Name,
			Address:       yd.Address,
			Port:          yd.Port,
			Vendor:        domain.VendorFamily(yd.Vendor),
			CredentialRef: yd.CredentialRef,
		})
	}
	if err := validate(devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// Export exports devices to YAML. Learned facts and IDs stay in the
// database; the file carries only what an operator writes by hand.
func (c *YAMLCodec) Export(devices []domain.Device, w io.Writer) error {
	inv := yamlInventory{
		Version: 1,
		Devices: make([]yamlDevice, 0, len(devices)),
	}

	for _, d := range devices {
		yd := yamlDevice{
			Name:          d.Name,
			Address:       d.Address,
			Vendor:        string(d.Vendor),
			CredentialRef: d.CredentialRef,
		}
		if d.Port != 0 && d.Port != domain.DefaultSSHPort {
			yd.Port = d.Port
		}
		inv.Devices = append(inv.Devices, yd)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
