// Package executor sends command batches to one device through its session.
package executor

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"netpilot/internal/domain"
	"netpilot/internal/metrics"
	"netpilot/internal/session"
	"netpilot/internal/vendor"
)

const defaultTimeout = 30 * time.Second

// CommandOutput is the text returned for one command
type CommandOutput struct {
	Command  string        `json:"command"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration"`
}

// Result holds the outputs of every command that completed, in order
type Result struct {
	Device  string           `json:"device"`
	Mode    domain.BatchMode `json:"mode"`
	Outputs []CommandOutput  `json:"outputs"`
}

// Text joins every output with newlines
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	parts := make([]string, len(r.Outputs))
	for i, o := range r.Outputs {
		parts[i] = o.Output
	}
	return strings.Join(parts, "\n")
}

// Last returns the output of the final completed command
func (r *Result) Last() string {
	if r == nil || len(r.Outputs) == 0 {
		return ""
	}
	return r.Outputs[len(r.Outputs)-1].Output
}

// Executor runs batches. It never retries and never persists implicitly.
type Executor struct {
	timeout time.Duration
	slow    time.Duration
	logger  *zap.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTimeout sets the per-command timeout used when a batch has none
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithSlowTimeout sets the per-command timeout for save and commit steps
func WithSlowTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.slow = d
		}
	}
}

// New creates an executor
func New(opts ...Option) *Executor {
	e := &Executor{
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("executor")
	return e
}

// Execute sends the batch's commands in order on behalf of device, which
// labels the result and any failure. The first failure aborts the remaining
// commands; the completed outputs are returned together with a
// *domain.BatchError recording the failing command. For configuration
// batches the adapter's CLI error marker counts as a failure.
//
// The session remembers whether the CLI was left in configuration mode, and
// a command that would enter it again is recorded without being sent.
func (e *Executor) Execute(ctx context.Context, device domain.Device, sess *session.Session, adapter vendor.Adapter, batch domain.CommandBatch) (*Result, error) {
	result := &Result{
		Device:  device.Key(),
		Mode:    batch.Mode,
		Outputs: make([]CommandOutput, 0, len(batch.Commands)),
	}

	timeout := batch.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	vendorTag := string(adapter.Family())

	err := sess.Exclusive(func() error {
		for i, cmd := range batch.Commands {
			if sess.ConfigMode() && adapter.ConfigMode(cmd, false) {
				result.Outputs = append(result.Outputs, CommandOutput{Command: cmd})
				e.logger.Debug("already in configuration mode",
					zap.String("device", device.Key()),
					zap.String("command", cmd),
				)
				continue
			}

			start := time.Now()
			out, err := sess.Send(ctx, cmd, timeout)
			if err == nil && batch.Mutating() {
				err = adapter.OutputError(out)
			}
			elapsed := time.Since(start)
			metrics.RecordCommand(vendorTag, elapsed, err)

			if err != nil {
				e.logger.Warn("command failed",
					zap.String("device", device.Key()),
					zap.String("command", cmd),
					zap.Int("index", i),
					zap.Error(err),
				)
				return &domain.BatchError{Device: device.Label(), Index: i, Command: cmd, Err: err}
			}

			sess.SetConfigMode(adapter.ConfigMode(cmd, sess.ConfigMode()))
			result.Outputs = append(result.Outputs, CommandOutput{Command: cmd, Output: out, Duration: elapsed})
			e.logger.Debug("command executed",
				zap.String("device", device.Key()),
				zap.String("command", cmd),
				zap.Int64("duration_ms", elapsed.Milliseconds()),
			)
		}
		return nil
	})
	return result, err
}

// Persist runs the family's explicit save or commit sequence
func (e *Executor) Persist(ctx context.Context, device domain.Device, sess *session.Session, adapter vendor.Adapter) (*Result, error) {
	cmds := adapter.PersistCommands()
	if len(cmds) == 0 {
		return nil, domain.Unsupported(adapter.Family(), "persist configuration")
	}
	return e.Execute(ctx, device, sess, adapter, domain.NewConfigBatch(cmds...).WithTimeout(e.slow))
}
