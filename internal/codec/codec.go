// Package codec converts device inventories to and from file formats.
package codec

import (
	"fmt"
	"io"
	"sort"

	"netpilot/internal/domain"
)

// Importer reads devices from a file format
type Importer interface {
	Parse(r io.Reader) ([]domain.Device, error)
	Format() string
}

// Exporter writes devices to a file format
type Exporter interface {
	Export(devices []domain.Device, w io.Writer) error
	Format() string
}

// Codec both imports and exports one format
type Codec interface {
	Importer
	Exporter
}

var codecs = map[string]Codec{}

func register(c Codec) {
	codecs[c.Format()] = c
}

func init() {
	register(NewJSONCodec())
	register(NewYAMLCodec())
	register(NewAnsibleCodec())
}

// ForFormat returns the codec for a format name
func ForFormat(format string) (Codec, error) {
	c, ok := codecs[format]
	if !ok {
		return nil, fmt.Errorf("unknown inventory format %q (have %v)", format, Formats())
	}
	return c, nil
}

// Formats lists the supported format names
func Formats() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validate checks the fields every imported device needs
func validate(devices []domain.Device) error {
	for i, d := range devices {
		if d.Address == "" {
			return fmt.Errorf("device %d (%s): missing address", i, d.Name)
		}
		if _, err := domain.ParseVendorFamily(string(d.Vendor)); err != nil {
			return fmt.Errorf("device %d (%s): %w", i, d.Label(), err)
		}
		if d.Port < 0 || d.Port > 65535 {
			return fmt.Errorf("device %d (%s): port %d out of range", i, d.Label(), d.Port)
		}
	}
	return nil
}
