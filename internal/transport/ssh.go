package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"netpilot/internal/domain"
)

const keepaliveTimeout = 5 * time.Second

var (
	ansiRe   = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	promptRe = regexp.MustCompile(`^\S.{0,79}[>#%$]\s?$`)
)

// SSHDialer opens interactive SSH shell sessions
type SSHDialer struct {
	logger          *zap.Logger
	hostKeyCallback ssh.HostKeyCallback
	knownHostsFile  string
}

// SSHOption configures an SSHDialer
type SSHOption func(*SSHDialer)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) SSHOption {
	return func(d *SSHDialer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithKnownHostsFile enables host key checking against an OpenSSH known_hosts file
func WithKnownHostsFile(path string) SSHOption {
	return func(d *SSHDialer) {
		d.knownHostsFile = path
	}
}

// NewSSHDialer creates a dialer. Without a known_hosts file host keys are
// accepted unchecked, which suits lab networks and first contact.
func NewSSHDialer(opts ...SSHOption) (*SSHDialer, error) {
	d := &SSHDialer{
		logger:          zap.NewNop(),
		hostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.knownHostsFile != "" {
		cb, err := knownhosts.New(d.knownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
		d.hostKeyCallback = cb
	}
	d.logger = d.logger.Named("ssh")
	return d, nil
}

// Connect authenticates, opens a shell and waits for the first prompt
func (d *SSHDialer) Connect(ctx context.Context, address string, creds domain.Credentials, timeout time.Duration) (Conn, error) {
	config, err := d.clientConfig(creds, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
	}

	dialer := &net.Dialer{Timeout: timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, classify("dial", err)
	}

	// Bound the handshake; cleared once the shell is up
	_ = netConn.SetDeadline(time.Now().Add(timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, address, config)
	if err != nil {
		netConn.Close()
		return nil, classify("handshake", err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	conn, err := d.openShell(client, address)
	if err != nil {
		client.Close()
		return nil, err
	}

	banner, err := conn.readUntilPrompt(timeout)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = netConn.SetDeadline(time.Time{})
	conn.promptBase = promptBase(lastLine(banner))

	d.logger.Debug("session opened",
		zap.String("address", address),
		zap.String("user", creds.Username),
		zap.String("prompt", conn.promptBase))
	return conn, nil
}

func (d *SSHDialer) clientConfig(creds domain.Credentials, timeout time.Duration) (*ssh.ClientConfig, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	methods := make([]ssh.AuthMethod, 0, 3)
	if len(creds.PrivateKey) > 0 {
		var signer ssh.Signer
		var err error
		if creds.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(creds.PrivateKey, []byte(creds.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(creds.PrivateKey)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if creds.UseAgent {
		if sock := strings.TrimSpace(os.Getenv("SSH_AUTH_SOCK")); sock != "" {
			if conn, err := net.Dial("unix", sock); err == nil {
				methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			} else {
				d.logger.Warn("ssh agent unavailable", zap.Error(err))
			}
		}
	}
	if creds.Password != "" {
		password := creds.Password
		methods = append(methods,
			ssh.Password(password),
			// Many network operating systems only offer keyboard-interactive
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no usable ssh credentials provided")
	}

	return &ssh.ClientConfig{
		User:            username,
		Auth:            methods,
		HostKeyCallback: d.hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

func (d *SSHDialer) openShell(client *ssh.Client, address string) (*sshConn, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, classify("open session", err)
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := session.RequestPty("vt100", 0, 511, modes); err != nil {
		session.Close()
		return nil, classify("request pty", err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, classify("stdin", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, classify("stdout", err)
	}
	if err := session.Shell(); err != nil {
		session.Close()
		return nil, classify("shell", err)
	}

	conn := &sshConn{
		address: address,
		client:  client,
		session: session,
		stdin:   stdin,
		output:  make(chan []byte, 64),
		logger:  d.logger,
	}
	go conn.pump(stdout)
	return conn, nil
}

// sshConn is one interactive shell. Commands are serialized by mu.
type sshConn struct {
	address    string
	client     *ssh.Client
	session    *ssh.Session
	stdin      io.WriteCloser
	output     chan []byte
	promptBase string
	logger     *zap.Logger

	mu        sync.Mutex
	broken    bool
	closeOnce sync.Once
}

func (c *sshConn) pump(r io.Reader) {
	defer close(c.output)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.output <- chunk
		}
		if err != nil {
			return
		}
	}
}

// SendCommand writes the command and reads to the next prompt. The read is
// not interruptible; it runs to the prompt or to the timeout.
func (c *sshConn) SendCommand(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken {
		return "", fmt.Errorf("%w: session to %s is closed", domain.ErrTransport, c.address)
	}
	c.drain()

	if _, err := io.WriteString(c.stdin, command+"\n"); err != nil {
		c.broken = true
		return "", classify("write", err)
	}

	raw, err := c.readUntilPrompt(timeout)
	if err != nil {
		// Late output would corrupt the next command
		c.broken = true
		return cleanOutput(raw, command), err
	}
	return cleanOutput(raw, command), nil
}

func (c *sshConn) drain() {
	for {
		select {
		case _, ok := <-c.output:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (c *sshConn) readUntilPrompt(timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var buf bytes.Buffer
	for {
		select {
		case chunk, ok := <-c.output:
			if !ok {
				return buf.String(), fmt.Errorf("%w: session to %s closed by peer", domain.ErrTransport, c.address)
			}
			buf.Write(chunk)
			if c.atPrompt(buf.Bytes()) {
				return buf.String(), nil
			}
		case <-timer.C:
			return buf.String(), fmt.Errorf("%w: no prompt from %s after %s", domain.ErrTimeout, c.address, timeout)
		}
	}
}

func (c *sshConn) atPrompt(b []byte) bool {
	last := lastLine(string(b))
	if !promptRe.MatchString(last) {
		return false
	}
	return c.promptBase == "" || strings.HasPrefix(last, c.promptBase)
}

// IsAlive sends an SSH keepalive request
func (c *sshConn) IsAlive() bool {
	c.mu.Lock()
	broken := c.broken
	c.mu.Unlock()
	if broken {
		return false
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := c.client.SendRequest("keepalive@openssh.com", true, nil)
		done <- err
	}()

	select {
	case err := <-done:
		return err == nil
	case <-time.After(keepaliveTimeout):
		return false
	}
}

// Close tears down the shell and the connection
func (c *sshConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.broken = true
		c.mu.Unlock()
		c.stdin.Close()
		c.session.Close()
		err = c.client.Close()
		c.logger.Debug("session closed", zap.String("address", c.address))
	})
	return err
}

// cleanOutput drops the echoed command and the trailing prompt
func cleanOutput(raw, command string) string {
	text := ansiRe.ReplaceAllString(raw, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "")
	lines := strings.Split(text, "\n")

	if len(lines) > 0 && promptRe.MatchString(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > 0 && command != "" && strings.Contains(lines[0], strings.TrimSpace(command)) {
		lines = lines[1:]
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func lastLine(s string) string {
	s = ansiRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r", "")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// promptBase strips the mode suffix from a prompt: "R1#" and
// "R1(config)#" share "R1"; "admin@r2> " and "admin@r2# " share "admin@r2".
func promptBase(prompt string) string {
	p := strings.TrimRight(prompt, " ")
	p = strings.TrimRight(p, ">#%$")
	p = strings.TrimRight(p, " ")
	if i := strings.IndexByte(p, '('); i > 0 {
		p = p[:i]
	}
	return p
}
