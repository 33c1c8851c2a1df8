package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"netpilot/internal/alert"
	"netpilot/internal/domain"
)

type fakePoller struct {
	mu     sync.Mutex
	ifaces map[string][]domain.Interface
	errs   map[string]error
	polls  chan string
}

func newFakePoller() *fakePoller {
	return &fakePoller{
		ifaces: make(map[string][]domain.Interface),
		errs:   make(map[string]error),
		polls:  make(chan string, 16),
	}
}

func (f *fakePoller) InterfaceBrief(_ context.Context, device domain.Device) ([]domain.Interface, error) {
	f.mu.Lock()
	ifaces, err := f.ifaces[device.ID], f.errs[device.ID]
	f.mu.Unlock()

	select {
	case f.polls <- device.ID:
	default:
	}
	return ifaces, err
}

func uplinkRule() domain.AlertRule {
	return domain.AlertRule{
		ID:        "uplink",
		DeviceID:  "dev-1",
		Metric:    domain.MetricInterfaceStatus,
		Target:    "eth0",
		Condition: domain.ConditionNotEquals,
		Expected:  "up",
	}
}

func TestMonitorRejectsShortInterval(t *testing.T) {
	m := NewMonitor(newFakePoller(), alert.NewEvaluator(alert.NewMemoryRules()), nil)

	err := m.Start(5*time.Second, []domain.Device{{ID: "dev-1"}})
	if !errors.Is(err, domain.ErrIntervalTooShort) {
		t.Fatalf("Start(5s) error = %v, want ErrIntervalTooShort", err)
	}
	if m.Running() {
		t.Error("monitor running after rejected start")
	}
}

func TestMonitorStartStop(t *testing.T) {
	poller := newFakePoller()
	m := NewMonitor(poller, alert.NewEvaluator(alert.NewMemoryRules()), nil)

	if err := m.Start(MinInterval, []domain.Device{{ID: "dev-1"}}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !m.Running() {
		t.Fatal("monitor not running after Start()")
	}

	select {
	case id := <-poller.polls:
		if id != "dev-1" {
			t.Errorf("polled %q, want dev-1", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first poll did not happen right away")
	}

	if err := m.Start(time.Hour, nil); err != nil {
		t.Errorf("second Start() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}
	if m.Running() {
		t.Error("monitor running after Stop()")
	}

	m.Stop()
}

func TestMonitorPollOnce(t *testing.T) {
	poller := newFakePoller()
	poller.ifaces["dev-1"] = []domain.Interface{
		{Name: "eth0", OperStatus: "down"},
		{Name: "eth1", OperStatus: "up"},
	}
	poller.errs["dev-2"] = domain.ErrTimeout

	var (
		mu       sync.Mutex
		received []domain.TriggeredAlert
	)
	sink := func(alerts []domain.TriggeredAlert) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, alerts...)
	}

	m := NewMonitor(poller, alert.NewEvaluator(alert.NewMemoryRules(uplinkRule())), sink)
	m.SetTargets([]domain.Device{{ID: "dev-2"}, {ID: "dev-1"}})

	got := m.PollOnce(context.Background())
	if len(got) != 1 {
		t.Fatalf("PollOnce() = %d alerts, want 1", len(got))
	}
	if got[0].RuleID != "uplink" || got[0].Actual != "down" {
		t.Errorf("alert = %+v", got[0])
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Errorf("sink received %d alerts, want 1", len(received))
	}
}

func TestMonitorQuietCycleSkipsSink(t *testing.T) {
	poller := newFakePoller()
	poller.ifaces["dev-1"] = []domain.Interface{{Name: "eth0", OperStatus: "up"}}

	called := false
	m := NewMonitor(poller, alert.NewEvaluator(alert.NewMemoryRules(uplinkRule())), func([]domain.TriggeredAlert) {
		called = true
	})
	m.SetTargets([]domain.Device{{ID: "dev-1"}})

	if got := m.PollOnce(context.Background()); len(got) != 0 {
		t.Errorf("PollOnce() = %v, want none", got)
	}
	if called {
		t.Error("sink called for a quiet cycle")
	}
}

func TestMonitorSetTargetsCopies(t *testing.T) {
	m := NewMonitor(newFakePoller(), alert.NewEvaluator(alert.NewMemoryRules()), nil)
	targets := []domain.Device{{ID: "dev-1"}}
	m.SetTargets(targets)
	targets[0].ID = "changed"

	if got := m.currentTargets(); got[0].ID != "dev-1" {
		t.Errorf("targets aliased caller slice: %v", got)
	}
}
