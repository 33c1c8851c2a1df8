package orchestrator

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"go.uber.org/zap"
)

// DefaultProbeTimeout is the short timeout for reachability probes
const DefaultProbeTimeout = 2 * time.Second

// Prober checks whether one address accepts connections on a port
type Prober interface {
	Probe(ctx context.Context, address string, port int) bool
}

// Sweeper checks a whole set of addresses in one pass and returns the ones
// with the port open
type Sweeper interface {
	Sweep(ctx context.Context, addresses []string, port int) (map[string]bool, error)
}

// TCPProber probes with a plain TCP connect
type TCPProber struct {
	Timeout time.Duration
}

// Probe attempts to connect to a TCP port
func (p TCPProber) Probe(ctx context.Context, address string, port int) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// NmapSweeper runs one nmap TCP scan over the candidate addresses
type NmapSweeper struct {
	timeout           time.Duration
	skipHostDiscovery bool
	logger            *zap.Logger
}

// NmapOption configures an NmapSweeper
type NmapOption func(*NmapSweeper)

// WithNmapTimeout sets the timeout for the entire nmap scan
func WithNmapTimeout(d time.Duration) NmapOption {
	return func(n *NmapSweeper) {
		n.timeout = d
	}
}

// WithSkipHostDiscovery sets whether to skip ping and treat all hosts as online (-Pn)
// Useful for networks that block ICMP
func WithSkipHostDiscovery(skip bool) NmapOption {
	return func(n *NmapSweeper) {
		n.skipHostDiscovery = skip
	}
}

// WithNmapLogger sets the logger
func WithNmapLogger(logger *zap.Logger) NmapOption {
	return func(n *NmapSweeper) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNmapSweeper creates a sweeper
func NewNmapSweeper(opts ...NmapOption) *NmapSweeper {
	n := &NmapSweeper{
		timeout:           5 * time.Minute,
		skipHostDiscovery: true,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.Named("nmap")
	return n
}

// Available checks if the nmap binary can run
func (n *NmapSweeper) Available(ctx context.Context) bool {
	scanner, err := nmap.NewScanner(
		ctx,
		nmap.WithTargets("localhost"),
		nmap.WithListScan(),
	)
	if err != nil {
		return false
	}
	_, _, err = scanner.Run()
	return err == nil
}

// Sweep scans every address for the port and returns the open ones
func (n *NmapSweeper) Sweep(ctx context.Context, addresses []string, port int) (map[string]bool, error) {
	if len(addresses) == 0 {
		return map[string]bool{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	opts := []nmap.Option{
		nmap.WithTargets(addresses...),
		nmap.WithPorts(strconv.Itoa(port)),
	}
	if n.skipHostDiscovery {
		opts = append(opts, nmap.WithSkipHostDiscovery())
	}

	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	n.logger.Info("sweep started", zap.Int("targets", len(addresses)), zap.Int("port", port))
	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		n.logger.Warn("sweep warnings", zap.Strings("warnings", *warnings))
	}

	return openHosts(result, uint16(port))
}

// openHosts extracts the IPv4 addresses with the port open
func openHosts(result *nmap.Run, port uint16) (map[string]bool, error) {
	if result == nil {
		return nil, fmt.Errorf("nil scan result")
	}

	open := make(map[string]bool)
	for _, host := range result.Hosts {
		if len(host.Addresses) == 0 || host.Status.State != "up" {
			continue
		}

		var ip string
		for _, addr := range host.Addresses {
			if addr.AddrType == "ipv4" {
				ip = addr.Addr
				break
			}
		}
		if ip == "" {
			ip = host.Addresses[0].Addr
		}

		for _, p := range host.Ports {
			if p.ID == port && p.Protocol == "tcp" && p.State.State == "open" {
				open[ip] = true
			}
		}
	}
	return open, nil
}
