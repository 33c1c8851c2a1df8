package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"netpilot/internal/domain"
	"netpilot/internal/metrics"
)

// Inventory reads devices for the status API
type Inventory interface {
	ListDevices(ctx context.Context) ([]domain.Device, error)
	FindDevice(ctx context.Context, ref string) (domain.Device, error)
}

// RuleSet lists the live alert rules
type RuleSet interface {
	All() []domain.AlertRule
}

// AlertFeed holds recently triggered alerts and streams new ones
type AlertFeed interface {
	http.Handler
	Recent() []domain.TriggeredAlert
}

// MonitorState reports whether the polling loop runs
type MonitorState interface {
	Running() bool
}

// StatusHandler serves the read-only monitoring API
type StatusHandler struct {
	inventory Inventory
	rules     RuleSet
	alerts    AlertFeed
	monitor   MonitorState
	logger    *zap.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(inventory Inventory, rules RuleSet, alerts AlertFeed, monitor MonitorState, logger *zap.Logger) *StatusHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusHandler{
		inventory: inventory,
		rules:     rules,
		alerts:    alerts,
		monitor:   monitor,
		logger:    logger.Named("http"),
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status     string `json:"status"`
	Monitoring bool   `json:"monitoring"`
	Rules      int    `json:"rules"`
}

// Routes returns the mux with every endpoint, wrapped in the middleware
func (h *StatusHandler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health)

	mux.HandleFunc("GET /api/devices", h.ListDevices)
	mux.HandleFunc("GET /api/devices/{ref}", h.GetDevice)
	mux.HandleFunc("GET /api/rules", h.ListRules)
	mux.HandleFunc("GET /api/alerts", h.ListAlerts)

	mux.Handle("GET /events", h.alerts)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return Chain(mux,
		Recover(h.logger),
		Logger(h.logger),
	)
}

// Health reports liveness and whether monitoring is active
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, HealthResponse{
		Status:     "ok",
		Monitoring: h.monitor.Running(),
		Rules:      len(h.rules.All()),
	}, http.StatusOK)
}

// ListDevices returns the inventory
func (h *StatusHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.inventory.ListDevices(r.Context())
	if err != nil {
		h.logger.Error("failed to list devices", zap.Error(err))
		h.writeError(w, "Failed to list devices", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, devices, http.StatusOK)
}

// GetDevice returns one device by ID, name, or address
func (h *StatusHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")

	device, err := h.inventory.FindDevice(r.Context(), ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get device", zap.String("ref", ref), zap.Error(err))
		h.writeError(w, "Failed to get device", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, device, http.StatusOK)
}

// ListRules returns the live rule set
func (h *StatusHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.rules.All(), http.StatusOK)
}

// ListAlerts returns the recently triggered alerts
func (h *StatusHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.alerts.Recent(), http.StatusOK)
}

// Helper methods

func (h *StatusHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode JSON", zap.Error(err))
	}
}

func (h *StatusHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{
		Error:   error,
		Details: details,
	}, statusCode)
}
