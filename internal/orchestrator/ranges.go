package orchestrator

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"

	"netpilot/internal/domain"
)

// MaxRangeHosts bounds a single discovery sweep
const MaxRangeHosts = 4096

// ExpandRange converts a CIDR block or single IPv4 address into the list of
// host addresses to scan. Network and broadcast addresses are excluded;
// /31 and /32 blocks are kept whole.
func ExpandRange(r string) ([]string, error) {
	r = strings.TrimSpace(r)
	if !strings.Contains(r, "/") {
		addr, err := netip.ParseAddr(r)
		if err != nil || !addr.Is4() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRange, r)
		}
		return []string{addr.String()}, nil
	}

	prefix, err := netip.ParsePrefix(r)
	if err != nil || !prefix.Addr().Is4() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRange, r)
	}
	prefix = prefix.Masked()

	base := prefix.Addr().As4()
	first := binary.BigEndian.Uint32(base[:])
	last := first | (uint32(1)<<(32-prefix.Bits()) - 1)

	if prefix.Bits() < 31 {
		first++
		last--
	}

	if count := uint64(last) - uint64(first) + 1; count > MaxRangeHosts {
		return nil, fmt.Errorf("%w: %s has %d hosts, max %d", domain.ErrRangeTooLarge, prefix, count, MaxRangeHosts)
	}

	hosts := make([]string, 0, last-first+1)
	for i := uint64(first); i <= uint64(last); i++ {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(i))
		hosts = append(hosts, netip.AddrFrom4(b).String())
	}
	return hosts, nil
}
