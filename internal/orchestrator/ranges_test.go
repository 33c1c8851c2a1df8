package orchestrator

import (
	"errors"
	"reflect"
	"testing"

	"netpilot/internal/domain"
)

func TestExpandRange(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      []string
		wantCount int
		wantErr   error
	}{
		{name: "slash 30 excludes network and broadcast", input: "192.168.1.0/30", want: []string{"192.168.1.1", "192.168.1.2"}},
		{name: "slash 31 kept whole", input: "10.0.0.0/31", want: []string{"10.0.0.0", "10.0.0.1"}},
		{name: "slash 32 kept whole", input: "10.0.0.7/32", want: []string{"10.0.0.7"}},
		{name: "single address", input: " 172.16.0.9 ", want: []string{"172.16.0.9"}},
		{name: "slash 24", input: "192.168.10.0/24", wantCount: 254},
		{name: "slash 20 at the limit", input: "10.1.0.0/20", wantCount: 4094},
		{name: "slash 19 too large", input: "10.1.0.0/19", wantErr: domain.ErrRangeTooLarge},
		{name: "garbage", input: "not-a-range", wantErr: domain.ErrInvalidRange},
		{name: "bad prefix", input: "192.168.1.0/99", wantErr: domain.ErrInvalidRange},
		{name: "ipv6", input: "2001:db8::/126", wantErr: domain.ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandRange(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ExpandRange(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExpandRange(%q) error = %v", tt.input, err)
			}
			if tt.wantCount > 0 {
				if len(got) != tt.wantCount {
					t.Errorf("ExpandRange(%q) = %d hosts, want %d", tt.input, len(got), tt.wantCount)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpandRange(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandRangeMasksHostBits(t *testing.T) {
	got, err := ExpandRange("192.168.1.5/30")
	if err != nil {
		t.Fatalf("ExpandRange() error = %v", err)
	}
	want := []string{"192.168.1.5", "192.168.1.6"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandRange() = %v, want %v", got, want)
	}
}
