package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"netpilot/internal/alert"
	"netpilot/internal/domain"
	"netpilot/internal/metrics"
)

// MinInterval is the shortest accepted polling interval
const MinInterval = 10 * time.Second

// Poller reads the operational interface view of a device
type Poller interface {
	InterfaceBrief(ctx context.Context, device domain.Device) ([]domain.Interface, error)
}

// Monitor polls its targets on an interval and hands the records to the
// alert evaluator. Start and Stop are idempotent.
type Monitor struct {
	poller    Poller
	evaluator *alert.Evaluator
	sink      alert.Sink
	logger    *zap.Logger

	targetsMu sync.Mutex
	targets   []domain.Device

	runMu  sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// MonitorOption configures a Monitor
type MonitorOption func(*Monitor)

// WithMonitorLogger sets the logger
func WithMonitorLogger(logger *zap.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMonitor creates a stopped monitor. sink may be nil.
func NewMonitor(poller Poller, evaluator *alert.Evaluator, sink alert.Sink, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		poller:    poller,
		evaluator: evaluator,
		sink:      sink,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("monitor")
	return m
}

// Start begins polling targets every interval, with the first poll right
// away. Intervals below MinInterval are rejected before anything starts.
// Starting a running monitor is a no-op.
func (m *Monitor) Start(interval time.Duration, targets []domain.Device) error {
	if interval < MinInterval {
		return fmt.Errorf("%w: %s is below %s", domain.ErrIntervalTooShort, interval, MinInterval)
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.stopCh != nil {
		return nil
	}

	m.SetTargets(targets)
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.loop(interval, m.stopCh, m.doneCh)

	m.logger.Info("monitoring started", zap.Duration("interval", interval), zap.Int("targets", len(targets)))
	return nil
}

// Stop ends the loop and waits for it to exit. A poll in progress finishes
// first; a pending wait is interrupted. Stopping a stopped monitor is a
// no-op.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.stopCh == nil {
		return
	}

	close(m.stopCh)
	<-m.doneCh
	m.stopCh = nil
	m.doneCh = nil
	m.logger.Info("monitoring stopped")
}

// Running reports whether the loop is active
func (m *Monitor) Running() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.stopCh != nil
}

// SetTargets replaces the polled devices; the change applies from the next
// cycle
func (m *Monitor) SetTargets(targets []domain.Device) {
	cp := make([]domain.Device, len(targets))
	copy(cp, targets)
	m.targetsMu.Lock()
	m.targets = cp
	m.targetsMu.Unlock()
}

func (m *Monitor) currentTargets() []domain.Device {
	m.targetsMu.Lock()
	defer m.targetsMu.Unlock()
	return m.targets
}

func (m *Monitor) loop(interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-timer.C:
			m.PollOnce(context.Background())
			timer.Reset(interval)
		}
	}
}

// PollOnce polls every target once, evaluates the records, and hands any
// triggered alerts to the sink. A device that fails to poll is logged and
// skipped for this cycle.
func (m *Monitor) PollOnce(ctx context.Context) []domain.TriggeredAlert {
	var triggered []domain.TriggeredAlert
	for _, device := range m.currentTargets() {
		ifaces, err := m.poller.InterfaceBrief(ctx, device)
		metrics.RecordPoll(err)
		if err != nil {
			m.logger.Warn("poll failed, skipping cycle",
				zap.String("device", device.Key()),
				zap.Error(err),
			)
			continue
		}
		triggered = append(triggered, m.evaluator.Evaluate(device.ID, domain.Snapshot{Interfaces: ifaces})...)
	}

	if len(triggered) > 0 {
		m.logger.Info("alerts triggered", zap.Int("count", len(triggered)))
		if m.sink != nil {
			m.sink(triggered)
		}
	}
	return triggered
}
