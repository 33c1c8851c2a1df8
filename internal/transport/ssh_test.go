package transport

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"netpilot/internal/domain"
)

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		command string
		want    string
	}{
		{
			name:    "cisco echo and prompt",
			raw:     "show clock\r\n*10:00:00.000 UTC Mon Jan 1 2024\r\nR1#",
			command: "show clock",
			want:    "*10:00:00.000 UTC Mon Jan 1 2024",
		},
		{
			name:    "junos prompt with trailing space",
			raw:     "show version\nHostname: r2\nModel: mx480\n\nadmin@r2> ",
			command: "show version",
			want:    "Hostname: r2\nModel: mx480",
		},
		{
			name:    "routeros ansi colors",
			raw:     "/system identity print\r\n  \x1b[m\x1b[32mname\x1b[m: MikroTik\r\n[admin@MikroTik] > ",
			command: "/system identity print",
			want:    "  name: MikroTik",
		},
		{
			name:    "no echo",
			raw:     "output line\nR1#",
			command: "show x",
			want:    "output line",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanOutput(tt.raw, tt.command); got != tt.want {
				t.Errorf("cleanOutput() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPromptDetection(t *testing.T) {
	tests := []struct {
		prompt string
		base   string
	}{
		{"R1#", "R1"},
		{"R1>", "R1"},
		{"R1(config-if)#", "R1"},
		{"admin@r2> ", "admin@r2"},
		{"admin@r2# ", "admin@r2"},
		{"[admin@MikroTik] > ", "[admin@MikroTik]"},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			if !promptRe.MatchString(tt.prompt) {
				t.Errorf("promptRe does not match %q", tt.prompt)
			}
			if got := promptBase(tt.prompt); got != tt.base {
				t.Errorf("promptBase() = %q, want %q", got, tt.base)
			}
		})
	}

	conn := &sshConn{promptBase: "R1"}
	if !conn.atPrompt([]byte("line\nR1(config)#")) {
		t.Error("expected config-mode prompt to match")
	}
	if conn.atPrompt([]byte("banner motd #")) {
		t.Error("banner text should not match a learned prompt")
	}
	if conn.atPrompt([]byte("R1#partial output")) {
		t.Error("output after prompt should not match")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"auth", fmt.Errorf("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]"), domain.ErrAuthentication},
		{"deadline", context.DeadlineExceeded, domain.ErrTimeout},
		{"refused", errors.New("dial tcp 10.0.0.1:22: connect: connection refused"), domain.ErrTransport},
		{"already typed", fmt.Errorf("%w: x", domain.ErrTimeout), domain.ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify("op", tt.err); !errors.Is(got, tt.want) {
				t.Errorf("classify() = %v, want %v", got, tt.want)
			}
		})
	}
	if classify("op", nil) != nil {
		t.Error("classify(nil) should be nil")
	}
}

func TestClientConfig(t *testing.T) {
	d, err := NewSSHDialer()
	if err != nil {
		t.Fatal(err)
	}

	t.Run("password adds keyboard interactive", func(t *testing.T) {
		cfg, err := d.clientConfig(domain.Credentials{Username: "admin", Password: "pw"}, time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if len(cfg.Auth) != 2 {
			t.Errorf("auth methods = %d, want 2", len(cfg.Auth))
		}
		if cfg.User != "admin" || cfg.Timeout != time.Second {
			t.Errorf("unexpected config %+v", cfg)
		}
	})

	t.Run("missing username", func(t *testing.T) {
		if _, err := d.clientConfig(domain.Credentials{Password: "pw"}, time.Second); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("no secret", func(t *testing.T) {
		if _, err := d.clientConfig(domain.Credentials{Username: "admin"}, time.Second); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("bad key", func(t *testing.T) {
		if _, err := d.clientConfig(domain.Credentials{Username: "admin", PrivateKey: []byte("nope")}, time.Second); err == nil {
			t.Error("expected error")
		}
	})
}

func TestConnectRefused(t *testing.T) {
	d, err := NewSSHDialer()
	if err != nil {
		t.Fatal(err)
	}
	// Port 1 on loopback is closed on any sane test host
	_, err = d.Connect(context.Background(), "127.0.0.1:1", domain.Credentials{Username: "a", Password: "b"}, time.Second)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrTransport) && !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("Connect() error = %v, want transport or timeout", err)
	}
}

func TestNewSSHDialerMissingKnownHosts(t *testing.T) {
	if _, err := NewSSHDialer(WithKnownHostsFile("/nonexistent/known_hosts")); err == nil {
		t.Error("expected error for missing known_hosts file")
	}
}
