// Package alert compares polled records against stored rules.
//
// Evaluation is stateless: a rule fires on every call while its condition
// holds. Deduplicating repeated firings is left to the notification sink.
package alert

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"netpilot/internal/domain"
	"netpilot/internal/metrics"
)

// RuleSource provides the rules bound to a device
type RuleSource interface {
	RulesFor(deviceID string) []domain.AlertRule
}

// Sink receives triggered alerts
type Sink func(alerts []domain.TriggeredAlert)

// ConditionFunc compares an actual value with the rule's expected value
type ConditionFunc func(actual, expected string) bool

// MetricFunc extracts a metric for target from a snapshot. ok is false when
// the target is absent.
type MetricFunc func(snapshot domain.Snapshot, target string) (value string, ok bool)

// Evaluator applies rules to snapshots
type Evaluator struct {
	rules      RuleSource
	conditions map[domain.Condition]ConditionFunc
	metrics    map[domain.Metric]MetricFunc
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCondition registers or replaces a condition kind
func WithCondition(cond domain.Condition, fn ConditionFunc) Option {
	return func(e *Evaluator) {
		e.conditions[cond] = fn
	}
}

// WithMetric registers or replaces a metric extractor
func WithMetric(metric domain.Metric, fn MetricFunc) Option {
	return func(e *Evaluator) {
		e.metrics[metric] = fn
	}
}

// NewEvaluator creates an evaluator with the built-in conditions and metrics
func NewEvaluator(rules RuleSource, opts ...Option) *Evaluator {
	e := &Evaluator{
		rules:      rules,
		conditions: make(map[domain.Condition]ConditionFunc),
		metrics:    make(map[domain.Metric]MetricFunc),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	e.conditions[domain.ConditionNotEquals] = func(actual, expected string) bool { return actual != expected }
	e.metrics[domain.MetricInterfaceStatus] = interfaceField(func(i domain.Interface) string { return i.OperStatus })
	e.metrics[domain.MetricInterfaceAdminStatus] = interfaceField(func(i domain.Interface) string { return i.AdminStatus })
	e.metrics[domain.MetricInterfaceAddress] = interfaceField(func(i domain.Interface) string { return i.Address })
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("alert")
	return e
}

func interfaceField(field func(domain.Interface) string) MetricFunc {
	return func(snapshot domain.Snapshot, target string) (string, bool) {
		iface, ok := snapshot.FindInterface(target)
		if !ok {
			return "", false
		}
		return field(iface), true
	}
}

// Evaluate returns one alert per rule of the device whose condition holds
// against the snapshot
func (e *Evaluator) Evaluate(deviceID string, snapshot domain.Snapshot) []domain.TriggeredAlert {
	triggered := []domain.TriggeredAlert{}
	for _, rule := range e.rules.RulesFor(deviceID) {
		cond, ok := e.conditions[rule.Condition]
		if !ok {
			e.logger.Warn("skipping rule with unknown condition",
				zap.String("rule", rule.ID), zap.String("condition", string(rule.Condition)))
			continue
		}
		extract, ok := e.metrics[rule.Metric]
		if !ok {
			e.logger.Warn("skipping rule with unknown metric",
				zap.String("rule", rule.ID), zap.String("metric", string(rule.Metric)))
			continue
		}

		actual, found := extract(snapshot, rule.Target)
		if !found {
			e.logger.Debug("rule target not in snapshot",
				zap.String("rule", rule.ID), zap.String("target", rule.Target))
			continue
		}
		if !cond(actual, rule.Expected) {
			continue
		}

		metrics.RecordAlert(string(rule.Metric))
		triggered = append(triggered, domain.TriggeredAlert{
			RuleID:    rule.ID,
			RuleName:  rule.Name,
			DeviceID:  deviceID,
			Metric:    rule.Metric,
			Target:    rule.Target,
			Condition: rule.Condition,
			Expected:  rule.Expected,
			Actual:    actual,
			Message:   fmt.Sprintf("%s %s is %q, expected %q", rule.Target, rule.Metric, actual, rule.Expected),
			At:        e.now(),
		})
	}
	return triggered
}
