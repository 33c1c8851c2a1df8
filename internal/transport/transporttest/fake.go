// Package transporttest provides an in-memory transport for tests.
package transporttest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"netpilot/internal/domain"
	"netpilot/internal/transport"
)

// Handler produces the output for one command sent to address
type Handler func(address, command string) (string, error)

// Dialer is a scriptable transport.Dialer
type Dialer struct {
	// Handler answers commands; nil echoes nothing
	Handler Handler
	// OnConnect may fail or block a connect attempt
	OnConnect func(ctx context.Context, address string, creds domain.Credentials) error

	mu    sync.Mutex
	conns map[string][]*Conn
}

var _ transport.Dialer = (*Dialer)(nil)

// NewDialer creates a fake dialer answering with handler
func NewDialer(handler Handler) *Dialer {
	return &Dialer{Handler: handler, conns: make(map[string][]*Conn)}
}

// Connect records the attempt and returns a live fake session
func (d *Dialer) Connect(ctx context.Context, address string, creds domain.Credentials, timeout time.Duration) (transport.Conn, error) {
	if d.OnConnect != nil {
		if err := d.OnConnect(ctx, address, creds); err != nil {
			return nil, err
		}
	}
	c := &Conn{address: address, handler: d.Handler, alive: true}
	d.mu.Lock()
	if d.conns == nil {
		d.conns = make(map[string][]*Conn)
	}
	d.conns[address] = append(d.conns[address], c)
	d.mu.Unlock()
	return c, nil
}

// Connects returns how many sessions were opened to address
func (d *Dialer) Connects(address string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns[address])
}

// Last returns the most recent session opened to address
func (d *Dialer) Last(address string) *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	conns := d.conns[address]
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

// Conn is a fake session that records every command
type Conn struct {
	address string
	handler Handler

	mu     sync.Mutex
	sent   []string
	alive  bool
	closed bool
}

// SendCommand records the command and asks the handler for output
func (c *Conn) SendCommand(ctx context.Context, command string, timeout time.Duration) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: closed", domain.ErrTransport)
	}
	c.sent = append(c.sent, command)
	c.mu.Unlock()

	if c.handler == nil {
		return "", nil
	}
	return c.handler(c.address, command)
}

// IsAlive reports whether the session has been killed or closed
func (c *Conn) IsAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive && !c.closed
}

// Close marks the session closed
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Kill makes the next liveness probe fail
func (c *Conn) Kill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alive = false
}

// Closed reports whether Close was called
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Sent returns the commands received so far
func (c *Conn) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}
