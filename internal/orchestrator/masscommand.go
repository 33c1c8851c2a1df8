package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"netpilot/internal/domain"
	"netpilot/internal/executor"
	"netpilot/internal/session"
	"netpilot/internal/vendor"
)

const defaultWorkers = 8

// DeviceOutput is the outcome of a batch on one device
type DeviceOutput struct {
	Device domain.Device
	Result *executor.Result
	Err    error
}

// MassCommand runs one batch across many devices
type MassCommand struct {
	sessions *session.Manager
	executor *executor.Executor
	registry *vendor.Registry
	workers  int
	logger   *zap.Logger
}

// MassOption configures a MassCommand
type MassOption func(*MassCommand)

// WithMassWorkers bounds how many devices run at once
func WithMassWorkers(n int) MassOption {
	return func(m *MassCommand) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithMassLogger sets the logger
func WithMassLogger(logger *zap.Logger) MassOption {
	return func(m *MassCommand) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMassCommand creates a mass-command orchestrator
func NewMassCommand(sessions *session.Manager, exec *executor.Executor, registry *vendor.Registry, opts ...MassOption) *MassCommand {
	m := &MassCommand{
		sessions: sessions,
		executor: exec,
		registry: registry,
		workers:  defaultWorkers,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("masscommand")
	return m
}

type indexedOutput struct {
	index  int
	output DeviceOutput
}

// Run executes the batch on every device and returns one output per device
// in submission order. Devices sharing a session key run one after another
// in the same worker, since a release by one would close the session under
// the other. Devices not started before ctx is cancelled are reported with
// domain.ErrCancelled.
func (m *MassCommand) Run(ctx context.Context, devices []domain.Device, batch domain.CommandBatch, progress ProgressFunc) []DeviceOutput {
	outputs := make([]DeviceOutput, len(devices))
	results := make(chan indexedOutput, len(devices))

	go func() {
		var g errgroup.Group
		g.SetLimit(m.workers)
		for _, group := range groupByKey(devices) {
			if ctx.Err() != nil {
				for _, i := range group {
					results <- indexedOutput{i, DeviceOutput{Device: devices[i], Err: domain.ErrCancelled}}
				}
				continue
			}
			g.Go(func() error {
				for _, i := range group {
					if ctx.Err() != nil {
						results <- indexedOutput{i, DeviceOutput{Device: devices[i], Err: domain.ErrCancelled}}
						continue
					}
					results <- indexedOutput{i, m.runOne(ctx, devices[i], batch)}
				}
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	completed := 0
	for r := range results {
		outputs[r.index] = r.output
		completed++
		progress.report(completed, len(devices))
	}

	m.logger.Info("mass command finished",
		zap.Int("devices", len(devices)),
		zap.Int("failed", countFailed(outputs)),
	)
	return outputs
}

func (m *MassCommand) runOne(ctx context.Context, device domain.Device, batch domain.CommandBatch) DeviceOutput {
	out := DeviceOutput{Device: device}

	adapter, err := m.registry.Lookup(device.Vendor)
	if err != nil {
		out.Err = err
		return out
	}

	sess, err := m.sessions.Acquire(ctx, device)
	if err != nil {
		out.Err = err
		m.logger.Warn("acquire failed", zap.String("device", device.Key()), zap.Error(err))
		return out
	}
	defer func() {
		if err := m.sessions.Release(device); err != nil {
			m.logger.Debug("release failed", zap.String("device", device.Key()), zap.Error(err))
		}
	}()

	out.Result, out.Err = m.executor.Execute(ctx, device, sess, adapter, batch)
	return out
}

// groupByKey returns device indexes grouped by session key, groups and
// members both in submission order
func groupByKey(devices []domain.Device) [][]int {
	var groups [][]int
	slot := make(map[string]int)
	for i, device := range devices {
		key := device.Key()
		g, ok := slot[key]
		if !ok {
			g = len(groups)
			slot[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

func countFailed(outputs []DeviceOutput) int {
	n := 0
	for _, o := range outputs {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// FormatOutputs renders one block per device, prefixed by its identity
func FormatOutputs(outputs []DeviceOutput) string {
	var b strings.Builder
	for i, o := range outputs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "--- %s ---\n", o.Device.Label())
		if text := o.Result.Text(); text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
		if o.Err != nil {
			fmt.Fprintf(&b, "ERROR: %v\n", o.Err)
		}
	}
	return b.String()
}
