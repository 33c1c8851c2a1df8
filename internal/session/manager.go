// Package session owns the table of live device sessions.
//
// At most one session exists per device key (address:port). Callers for the
// same key serialize on that key's lock while callers for different keys
// never contend. The table's own lock only guards map lookups and is never
// held across network I/O.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"netpilot/internal/domain"
	"netpilot/internal/metrics"
	"netpilot/internal/transport"
	"netpilot/internal/vendor"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultCommandTimeout = 30 * time.Second
)

// Status is the externally visible state of a device session
type Status string

const (
	StatusConnected    Status = "connected"
	StatusNotConnected Status = "not_connected"
)

// Session is one authenticated command channel bound to a device
type Session struct {
	ID     string
	device domain.Device
	conn   transport.Conn
	opened time.Time

	batch      sync.Mutex
	closed     bool
	configMode bool
}

// Device returns the device the session was opened for
func (s *Session) Device() domain.Device {
	return s.device
}

// OpenedAt returns when the session authenticated
func (s *Session) OpenedAt() time.Time {
	return s.opened
}

// Send sends one command and returns its output
func (s *Session) Send(ctx context.Context, command string, timeout time.Duration) (string, error) {
	return s.conn.SendCommand(ctx, command, timeout)
}

// Exclusive runs fn while holding the session's batch lock so that two
// batches never interleave on one CLI channel. It fails without running fn
// once the session has been closed.
func (s *Session) Exclusive(fn func() error) error {
	s.batch.Lock()
	defer s.batch.Unlock()
	if s.closed {
		return fmt.Errorf("session %s closed: %w", s.ID, domain.ErrTransport)
	}
	return fn()
}

// ConfigMode reports whether the CLI was left in configuration mode. Only
// valid inside Exclusive.
func (s *Session) ConfigMode() bool {
	return s.configMode
}

// SetConfigMode records the CLI mode. Only valid inside Exclusive.
func (s *Session) SetConfigMode(in bool) {
	s.configMode = in
}

// entry is one slot of the table. Entries are never removed so a caller
// waiting on mu always observes the slot other callers write to.
type entry struct {
	mu   sync.Mutex
	live atomic.Pointer[Session]
}

// Manager creates, reuses and tears down device sessions
type Manager struct {
	dialer         transport.Dialer
	registry       *vendor.Registry
	credentials    CredentialSource
	logger         *zap.Logger
	connectTimeout time.Duration
	commandTimeout time.Duration

	mu      sync.Mutex
	entries map[string]*entry
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithConnectTimeout sets the authentication timeout
func WithConnectTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.connectTimeout = d
		}
	}
}

// WithCommandTimeout sets the timeout for session setup commands
func WithCommandTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.commandTimeout = d
		}
	}
}

// NewManager creates a session manager
func NewManager(dialer transport.Dialer, registry *vendor.Registry, credentials CredentialSource, opts ...Option) *Manager {
	m := &Manager{
		dialer:         dialer,
		registry:       registry,
		credentials:    credentials,
		logger:         zap.NewNop(),
		connectTimeout: DefaultConnectTimeout,
		commandTimeout: DefaultCommandTimeout,
		entries:        make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("session")
	return m
}

func (m *Manager) slot(key string, create bool) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok && create {
		e = &entry{}
		m.entries[key] = e
	}
	return e
}

// Acquire returns the live session for the device, authenticating a new one
// when none exists or the existing one fails its liveness probe. Failures are
// returned as-is and never retried.
func (m *Manager) Acquire(ctx context.Context, device domain.Device) (*Session, error) {
	key := device.Key()
	e := m.slot(key, true)

	e.mu.Lock()
	defer e.mu.Unlock()

	if s := e.live.Load(); s != nil {
		if s.conn.IsAlive() {
			metrics.RecordSessionReuse()
			return s, nil
		}
		m.logger.Info("evicting dead session", zap.String("device", key), zap.String("session", s.ID))
		m.close(e, s)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	adapter, err := m.registry.Lookup(device.Vendor)
	if err != nil {
		return nil, err
	}

	creds, err := m.credentials.Resolve(ctx, device)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credentials for %s: %w", device.Label(), err)
	}

	conn, err := m.dialer.Connect(ctx, key, creds, m.connectTimeout)
	metrics.RecordSessionOpen(string(device.Vendor), err)
	if err != nil {
		m.logger.Warn("authentication failed", zap.String("device", key), zap.Error(err))
		return nil, err
	}

	for _, cmd := range adapter.SessionSetup() {
		if _, err := conn.SendCommand(ctx, cmd, m.commandTimeout); err != nil {
			conn.Close()
			metrics.RecordSessionClosed()
			return nil, fmt.Errorf("session setup %q on %s: %w", cmd, device.Label(), err)
		}
	}

	s := &Session{
		ID:     uuid.NewString(),
		device: device,
		conn:   conn,
		opened: time.Now(),
	}
	e.live.Store(s)

	m.logger.Info("session opened",
		zap.String("device", key),
		zap.String("vendor", string(device.Vendor)),
		zap.String("session", s.ID),
	)
	return s, nil
}

// Release closes the device's session. Releasing an absent session is a
// no-op.
func (m *Manager) Release(device domain.Device) error {
	e := m.slot(device.Key(), false)
	if e == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.live.Load()
	if s == nil {
		return nil
	}
	return m.close(e, s)
}

// close must be called with e.mu held. It waits for an in-flight batch on
// the session to finish before closing the channel.
func (m *Manager) close(e *entry, s *Session) error {
	e.live.Store(nil)
	s.batch.Lock()
	defer s.batch.Unlock()
	s.closed = true
	metrics.RecordSessionClosed()
	if err := s.conn.Close(); err != nil {
		m.logger.Debug("session close failed", zap.String("session", s.ID), zap.Error(err))
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// StatusOf reports whether the device has a live session. A failed probe is
// reported as not connected.
func (m *Manager) StatusOf(device domain.Device) Status {
	e := m.slot(device.Key(), false)
	if e == nil {
		return StatusNotConnected
	}
	s := e.live.Load()
	if s == nil || !s.conn.IsAlive() {
		return StatusNotConnected
	}
	return StatusConnected
}

// Len returns the number of open sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.live.Load() != nil {
			n++
		}
	}
	return n
}

// CloseAll closes every session
func (m *Manager) CloseAll() {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		if s := e.live.Load(); s != nil {
			m.close(e, s)
		}
		e.mu.Unlock()
	}
}
