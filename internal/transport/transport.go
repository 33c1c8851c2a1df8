// Package transport opens authenticated line-oriented command sessions.
//
// The SSH implementation drives an interactive shell so that CLI modes
// (configuration mode, paging settings) persist between commands, the way an
// operator's terminal would.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"netpilot/internal/domain"
)

// Conn is one authenticated command session
type Conn interface {
	// SendCommand sends one line and returns the output up to the next prompt
	SendCommand(ctx context.Context, command string, timeout time.Duration) (string, error)
	IsAlive() bool
	Close() error
}

// Dialer opens sessions
type Dialer interface {
	Connect(ctx context.Context, address string, creds domain.Credentials, timeout time.Duration) (Conn, error)
}

// classify maps low-level failures onto the domain error taxonomy
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.Is(err, domain.ErrAuthentication), errors.Is(err, domain.ErrTimeout), errors.Is(err, domain.ErrTransport):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %s: %w", domain.ErrTimeout, op, err)
	case strings.Contains(err.Error(), "unable to authenticate"),
		strings.Contains(err.Error(), "no supported methods remain"):
		return fmt.Errorf("%w: %s: %w", domain.ErrAuthentication, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", domain.ErrTransport, op, err)
	}
}
