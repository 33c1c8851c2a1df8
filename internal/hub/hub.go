// Package hub streams triggered alerts to Server-Sent Events clients and
// keeps a short history for late subscribers.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"netpilot/internal/domain"
)

const (
	defaultHistory = 100
	keepalive      = 30 * time.Second
)

// Event is one message sent to clients
type Event struct {
	Type   string                  `json:"type"`
	At     time.Time               `json:"at"`
	Alerts []domain.TriggeredAlert `json:"alerts"`
}

// EventAlerts is the type of events carrying triggered alerts
const EventAlerts = "alerts"

// Client represents a connected SSE client
type Client struct {
	id     string
	events chan []byte
}

// Hub manages SSE client connections
type Hub struct {
	logger *zap.Logger
	now    func() time.Time

	mu         sync.RWMutex
	clients    map[*Client]struct{}
	history    []domain.TriggeredAlert
	maxHistory int

	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}
}

// Option configures a Hub
type Option func(*Hub)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHistory sets how many recent alerts are kept
func WithHistory(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.maxHistory = n
		}
	}
}

// New creates a new Hub
func New(opts ...Option) *Hub {
	h := &Hub{
		logger:     zap.NewNop(),
		now:        time.Now,
		clients:    make(map[*Client]struct{}),
		maxHistory: defaultHistory,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("hub")
	return h
}

// Run starts the hub's event loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.events)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", zap.String("client", client.id), zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.events)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", zap.String("client", client.id), zap.Int("total", total))

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn("failed to marshal event", zap.Error(err))
				continue
			}
			msg := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, data))

			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.events <- msg:
				default:
					h.logger.Warn("slow client, message skipped", zap.String("client", client.id))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish records the alerts and queues them for every client. It has the
// alert.Sink signature.
func (h *Hub) Publish(alerts []domain.TriggeredAlert) {
	if len(alerts) == 0 {
		return
	}

	h.mu.Lock()
	h.history = append(h.history, alerts...)
	if over := len(h.history) - h.maxHistory; over > 0 {
		h.history = append([]domain.TriggeredAlert(nil), h.history[over:]...)
	}
	h.mu.Unlock()

	event := Event{Type: EventAlerts, At: h.now().UTC(), Alerts: alerts}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, event dropped", zap.Int("alerts", len(alerts)))
	}
}

// Recent returns the retained alerts, oldest first
func (h *Hub) Recent() []domain.TriggeredAlert {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.TriggeredAlert, len(h.history))
	copy(out, h.history)
	return out
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles SSE connections
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := &Client{
		id:     uuid.NewString(),
		events: make(chan []byte, 64),
	}

	select {
	case h.register <- client:
	case <-h.done:
		http.Error(w, "hub stopped", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
	}()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.events:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
