// Package metrics defines Prometheus metrics for netpilot.
//
// All metrics are registered with Registry, which the CLI serves on its
// metrics endpoint.
//
// Metric naming follows Prometheus conventions:
//   - netpilot_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every netpilot metric plus the Go runtime collectors
var Registry = prometheus.NewRegistry()

var (
	// CommandsTotal counts commands sent by vendor and outcome.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netpilot_commands_total",
			Help: "Total commands sent to devices by vendor and status.",
		},
		[]string{"vendor", "status"},
	)

	// CommandDurationSeconds is a histogram of per-command round trips.
	CommandDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netpilot_command_duration_seconds",
			Help:    "Duration of device commands in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"vendor"},
	)

	// SessionsOpenedTotal counts authentication attempts by vendor and outcome.
	SessionsOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netpilot_sessions_opened_total",
			Help: "Total session authentication attempts by vendor and status.",
		},
		[]string{"vendor", "status"},
	)

	// SessionsReusedTotal counts acquisitions served by a live session.
	SessionsReusedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "netpilot_sessions_reused_total",
			Help: "Total session acquisitions served by an existing live session.",
		},
	)

	// ActiveSessions is the number of sessions currently held.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "netpilot_active_sessions",
			Help: "Number of device sessions currently open.",
		},
	)

	// DiscoveredTotal counts devices registered by discovery by vendor.
	DiscoveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netpilot_discovered_devices_total",
			Help: "Total devices identified and registered by discovery.",
		},
		[]string{"vendor"},
	)

	// ProbesTotal counts reachability probes by result.
	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netpilot_discovery_probes_total",
			Help: "Total discovery reachability probes by result.",
		},
		[]string{"result"},
	)

	// PollsTotal counts monitoring polls by outcome.
	PollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netpilot_monitor_polls_total",
			Help: "Total monitoring polls by status.",
		},
		[]string{"status"},
	)

	// AlertsTotal counts triggered alerts by metric.
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netpilot_alerts_triggered_total",
			Help: "Total alerts triggered by metric.",
		},
		[]string{"metric"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		CommandsTotal,
		CommandDurationSeconds,
		SessionsOpenedTotal,
		SessionsReusedTotal,
		ActiveSessions,
		DiscoveredTotal,
		ProbesTotal,
		PollsTotal,
		AlertsTotal,
	)
}

// Status labels
const (
	StatusOK    = "ok"
	StatusError = "error"
)

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// RecordCommand records one command round trip.
func RecordCommand(vendor string, duration time.Duration, err error) {
	CommandsTotal.WithLabelValues(vendor, status(err)).Inc()
	CommandDurationSeconds.WithLabelValues(vendor).Observe(duration.Seconds())
}

// RecordSessionOpen records an authentication attempt.
func RecordSessionOpen(vendor string, err error) {
	SessionsOpenedTotal.WithLabelValues(vendor, status(err)).Inc()
	if err == nil {
		ActiveSessions.Inc()
	}
}

// RecordSessionReuse records an acquisition served from the table.
func RecordSessionReuse() {
	SessionsReusedTotal.Inc()
}

// RecordSessionClosed records a session leaving the table.
func RecordSessionClosed() {
	ActiveSessions.Dec()
}

// RecordProbe records one reachability probe.
func RecordProbe(reachable bool) {
	result := "unreachable"
	if reachable {
		result = "reachable"
	}
	ProbesTotal.WithLabelValues(result).Inc()
}

// RecordDiscovered records a device registered by discovery.
func RecordDiscovered(vendor string) {
	DiscoveredTotal.WithLabelValues(vendor).Inc()
}

// RecordPoll records one device poll.
func RecordPoll(err error) {
	PollsTotal.WithLabelValues(status(err)).Inc()
}

// RecordAlert records a triggered alert.
func RecordAlert(metric string) {
	AlertsTotal.WithLabelValues(metric).Inc()
}
