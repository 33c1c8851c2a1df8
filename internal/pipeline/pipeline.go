// Package pipeline routes device output through the matching vendor adapter
// and returns canonical records.
//
// Queries acquire the device's session, run a read-only batch and parse the
// output. Configuration operations build the vendor command sequence and run
// it as a configuration batch; nothing is ever persisted implicitly, SaveConfig
// is the only operation that writes or commits.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"netpilot/internal/domain"
	"netpilot/internal/executor"
	"netpilot/internal/session"
	"netpilot/internal/vendor"
)

// FactWriter persists facts learned from a device
type FactWriter interface {
	UpdateDeviceFacts(ctx context.Context, id string, facts domain.DeviceFacts) error
}

// Pipeline runs canonical operations against devices
type Pipeline struct {
	sessions *session.Manager
	executor *executor.Executor
	registry *vendor.Registry
	facts    FactWriter
	slow     time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithFactWriter sets where LearnFacts writes its results
func WithFactWriter(w FactWriter) Option {
	return func(p *Pipeline) {
		p.facts = w
	}
}

// WithSlowTimeout sets the per-command timeout for full configuration dumps
func WithSlowTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.slow = d
	}
}

// New creates a pipeline
func New(sessions *session.Manager, exec *executor.Executor, registry *vendor.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		sessions: sessions,
		executor: exec,
		registry: registry,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("pipeline")
	return p
}

// Adapter returns the adapter for the device's vendor tag
func (p *Pipeline) Adapter(device domain.Device) (vendor.Adapter, error) {
	return p.registry.Lookup(device.Vendor)
}

// Run acquires the device's session and executes the batch
func (p *Pipeline) Run(ctx context.Context, device domain.Device, batch domain.CommandBatch) (*executor.Result, error) {
	adapter, err := p.Adapter(device)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, device, adapter, batch)
}

func (p *Pipeline) run(ctx context.Context, device domain.Device, adapter vendor.Adapter, batch domain.CommandBatch) (*executor.Result, error) {
	sess, err := p.sessions.Acquire(ctx, device)
	if err != nil {
		return nil, err
	}
	return p.executor.Execute(ctx, device, sess, adapter, batch)
}

// query runs the command registered for purpose and returns its output
func (p *Pipeline) query(ctx context.Context, device domain.Device, purpose vendor.Purpose) (vendor.Adapter, string, error) {
	adapter, err := p.Adapter(device)
	if err != nil {
		return nil, "", err
	}
	cmd, err := vendor.Command(adapter, purpose)
	if err != nil {
		return nil, "", err
	}
	batch := domain.NewQueryBatch(cmd)
	if purpose == vendor.PurposeRunningConfig {
		batch = batch.WithTimeout(p.slow)
	}
	result, err := p.run(ctx, device, adapter, batch)
	if err != nil {
		return nil, "", fmt.Errorf("%s query on %s: %w", purpose, device.Label(), err)
	}
	return adapter, result.Text(), nil
}

// configure runs built commands as a configuration batch
func (p *Pipeline) configure(ctx context.Context, device domain.Device, adapter vendor.Adapter, commands []string) (*executor.Result, error) {
	if len(commands) == 0 {
		return nil, fmt.Errorf("no commands to apply on %s", device.Label())
	}
	result, err := p.run(ctx, device, adapter, domain.NewConfigBatch(commands...))
	if err != nil {
		return result, err
	}
	p.logger.Info("configuration applied",
		zap.String("device", device.Key()),
		zap.Int("commands", len(commands)),
	)
	return result, nil
}
