package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"netpilot/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

type jsonInventory struct {
	Devices []domain.Device `json:"devices"`
}

// Parse imports devices from JSON
func (c *JSONCodec) Parse(r io.Reader) ([]domain.Device, error) {
	var inv jsonInventory
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&inv); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if err := validate(inv.Devices); err != nil {
		return nil, err
	}
	return inv.Devices, nil
}

// Export exports devices to JSON
func (c *JSONCodec) Export(devices []domain.Device, w io.Writer) error {
	if devices == nil {
		devices = []domain.Device{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(jsonInventory{Devices: devices}); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
