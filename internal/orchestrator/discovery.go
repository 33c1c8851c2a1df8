package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"netpilot/internal/domain"
	"netpilot/internal/metrics"
	"netpilot/internal/session"
	"netpilot/internal/transport"
	"netpilot/internal/vendor"
)

// Inventory is the device store discovery reads and registers into
type Inventory interface {
	ListDevices(ctx context.Context) ([]domain.Device, error)
	AddDevice(ctx context.Context, device domain.Device) (domain.Device, error)
}

// DiscoveryStatus is the outcome for one address
type DiscoveryStatus string

const (
	DiscoverySkipped      DiscoveryStatus = "skipped"
	DiscoveryUnreachable  DiscoveryStatus = "unreachable"
	DiscoveryUnidentified DiscoveryStatus = "unidentified"
	DiscoveryRegistered   DiscoveryStatus = "registered"
	DiscoveryFailed       DiscoveryStatus = "failed"
	DiscoveryCancelled    DiscoveryStatus = "cancelled"
)

// Request describes one sweep
type Request struct {
	Range       string
	Port        int
	Credentials domain.Credentials
}

// DiscoveryResult is the outcome for one candidate address
type DiscoveryResult struct {
	Address string
	Status  DiscoveryStatus
	Device  *domain.Device
	Err     error
}

// Report summarizes a sweep
type Report struct {
	Results    []DiscoveryResult
	Registered []domain.Device
}

// Count returns how many addresses ended in status
func (r *Report) Count(status DiscoveryStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Discovery sweeps an address range and registers identified devices
type Discovery struct {
	dialer         transport.Dialer
	registry       *vendor.Registry
	inventory      Inventory
	prober         Prober
	sweeper        Sweeper
	limiter        *rate.Limiter
	workers        int
	connectTimeout time.Duration
	commandTimeout time.Duration
	logger         *zap.Logger
}

// DiscoveryOption configures a Discovery
type DiscoveryOption func(*Discovery)

// WithProber replaces the default TCP prober
func WithProber(p Prober) DiscoveryOption {
	return func(d *Discovery) {
		d.prober = p
	}
}

// WithSweeper checks reachability of the whole range in one pass instead of
// probing addresses one at a time
func WithSweeper(s Sweeper) DiscoveryOption {
	return func(d *Discovery) {
		d.sweeper = s
	}
}

// WithRate paces probes to at most perSecond, with bursts of burst
func WithRate(perSecond float64, burst int) DiscoveryOption {
	return func(d *Discovery) {
		if perSecond > 0 {
			d.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

// WithDiscoveryWorkers bounds how many addresses are handled at once
func WithDiscoveryWorkers(n int) DiscoveryOption {
	return func(d *Discovery) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithTimeouts sets the trial authentication and command timeouts
func WithTimeouts(connect, command time.Duration) DiscoveryOption {
	return func(d *Discovery) {
		if connect > 0 {
			d.connectTimeout = connect
		}
		if command > 0 {
			d.commandTimeout = command
		}
	}
}

// WithDiscoveryLogger sets the logger
func WithDiscoveryLogger(logger *zap.Logger) DiscoveryOption {
	return func(d *Discovery) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDiscovery creates a discovery orchestrator
func NewDiscovery(dialer transport.Dialer, registry *vendor.Registry, inventory Inventory, opts ...DiscoveryOption) *Discovery {
	d := &Discovery{
		dialer:         dialer,
		registry:       registry,
		inventory:      inventory,
		prober:         TCPProber{Timeout: DefaultProbeTimeout},
		limiter:        rate.NewLimiter(rate.Inf, 1),
		workers:        defaultWorkers,
		connectTimeout: session.DefaultConnectTimeout,
		commandTimeout: session.DefaultCommandTimeout,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named("discovery")
	return d
}

type indexedResult struct {
	index  int
	result DiscoveryResult
}

// Run sweeps the range. Invalid ranges and inventory read failures fail the
// whole run; everything else is recorded per address.
func (d *Discovery) Run(ctx context.Context, req Request, progress ProgressFunc) (*Report, error) {
	addresses, err := ExpandRange(req.Range)
	if err != nil {
		return nil, err
	}
	port := req.Port
	if port <= 0 {
		port = domain.DefaultSSHPort
	}

	known, err := d.knownKeys(ctx)
	if err != nil {
		return nil, err
	}

	var reachable map[string]bool
	if d.sweeper != nil {
		var candidates []string
		for _, addr := range addresses {
			if !known[candidateKey(addr, port)] {
				candidates = append(candidates, addr)
			}
		}
		reachable, err = d.sweeper.Sweep(ctx, candidates, port)
		if err != nil {
			return nil, fmt.Errorf("sweep %s: %w", req.Range, err)
		}
	}

	// Trial sessions live in their own table so they never collide with
	// sessions held by other workflows.
	sessions := session.NewManager(d.dialer, d.registry, session.StaticCredentials(req.Credentials),
		session.WithConnectTimeout(d.connectTimeout),
		session.WithCommandTimeout(d.commandTimeout),
		session.WithLogger(d.logger),
	)
	defer sessions.CloseAll()

	d.logger.Info("discovery started", zap.String("range", req.Range), zap.Int("addresses", len(addresses)))

	report := &Report{Results: make([]DiscoveryResult, len(addresses))}
	results := make(chan indexedResult, len(addresses))

	go func() {
		var g errgroup.Group
		g.SetLimit(d.workers)
		for i, addr := range addresses {
			if ctx.Err() != nil {
				results <- indexedResult{i, DiscoveryResult{Address: addr, Status: DiscoveryCancelled, Err: domain.ErrCancelled}}
				continue
			}
			if known[candidateKey(addr, port)] {
				results <- indexedResult{i, DiscoveryResult{Address: addr, Status: DiscoverySkipped}}
				continue
			}
			g.Go(func() error {
				results <- indexedResult{i, d.discoverOne(ctx, sessions, addr, port, reachable)}
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	completed := 0
	for r := range results {
		report.Results[r.index] = r.result
		completed++
		progress.report(completed, len(addresses))
	}
	for _, res := range report.Results {
		if res.Status == DiscoveryRegistered && res.Device != nil {
			report.Registered = append(report.Registered, *res.Device)
		}
	}

	d.logger.Info("discovery finished",
		zap.String("range", req.Range),
		zap.Int("registered", len(report.Registered)),
		zap.Int("skipped", report.Count(DiscoverySkipped)),
	)
	return report, nil
}

func candidateKey(address string, port int) string {
	return domain.Device{Address: address, Port: port}.Key()
}

func (d *Discovery) knownKeys(ctx context.Context) (map[string]bool, error) {
	devices, err := d.inventory.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	known := make(map[string]bool, len(devices))
	for _, dev := range devices {
		known[dev.Key()] = true
	}
	return known, nil
}

func (d *Discovery) discoverOne(ctx context.Context, sessions *session.Manager, addr string, port int, reachable map[string]bool) DiscoveryResult {
	res := DiscoveryResult{Address: addr}

	if ctx.Err() != nil {
		res.Status, res.Err = DiscoveryCancelled, domain.ErrCancelled
		return res
	}

	if reachable != nil {
		if !reachable[addr] {
			res.Status = DiscoveryUnreachable
			return res
		}
	} else {
		if err := d.limiter.Wait(ctx); err != nil {
			res.Status, res.Err = DiscoveryCancelled, domain.ErrCancelled
			return res
		}
		ok := d.prober.Probe(ctx, addr, port)
		metrics.RecordProbe(ok)
		if !ok {
			res.Status = DiscoveryUnreachable
			return res
		}
	}

	device, ok := d.identify(ctx, sessions, addr, port)
	if !ok {
		res.Status = DiscoveryUnidentified
		return res
	}

	registered, err := d.inventory.AddDevice(ctx, device)
	if err != nil {
		res.Status, res.Err = DiscoveryFailed, fmt.Errorf("failed to register %s: %w", addr, err)
		d.logger.Warn("register failed", zap.String("address", addr), zap.Error(err))
		return res
	}
	metrics.RecordDiscovered(string(registered.Vendor))
	d.logger.Info("device registered",
		zap.String("address", addr),
		zap.String("vendor", string(registered.Vendor)),
		zap.String("hostname", registered.Facts.Hostname),
	)

	res.Status, res.Device = DiscoveryRegistered, &registered
	return res
}

// identify tries every vendor in registry priority order. A failed
// authentication or a version output the adapter does not recognize means
// "not this vendor".
func (d *Discovery) identify(ctx context.Context, sessions *session.Manager, addr string, port int) (domain.Device, bool) {
	for _, family := range d.registry.Families() {
		if ctx.Err() != nil {
			return domain.Device{}, false
		}
		adapter, err := d.registry.Lookup(family)
		if err != nil {
			continue
		}
		versionCmd, err := vendor.Command(adapter, vendor.PurposeVersion)
		if err != nil {
			continue
		}

		candidate := domain.Device{Address: addr, Port: port, Vendor: family}
		sess, err := sessions.Acquire(ctx, candidate)
		if err != nil {
			d.logger.Debug("trial authentication failed",
				zap.String("address", addr), zap.String("vendor", string(family)), zap.Error(err))
			continue
		}

		versionText, err := sess.Send(ctx, versionCmd, d.commandTimeout)
		if err != nil || !adapter.Identify(versionText) {
			sessions.Release(candidate)
			continue
		}

		version := adapter.ParseVersion(versionText)
		hostname := ""
		if cmd, err := vendor.Command(adapter, vendor.PurposeHostname); err == nil {
			if text, err := sess.Send(ctx, cmd, d.commandTimeout); err == nil {
				hostname = adapter.ParseHostname(text)
			}
		}
		sessions.Release(candidate)

		learned := time.Now()
		candidate.Name = hostname
		if candidate.Name == "" {
			candidate.Name = addr
		}
		candidate.Facts = domain.DeviceFacts{
			OSVersion: version.OSVersion,
			Model:     version.Model,
			Hostname:  hostname,
			LearnedAt: &learned,
		}
		return candidate, true
	}
	return domain.Device{}, false
}
