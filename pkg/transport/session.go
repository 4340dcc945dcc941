// Package transport opens and maintains authenticated SSH sessions to device
// targets. A Session exposes three primitives: command execution, file
// transfer, and a forwarded local port to the device-side Redis where the
// structured configuration database lives.
package transport

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/fablab-network/fabpush/pkg/target"
	"github.com/fablab-network/fabpush/pkg/util"
)

// Session owns one authenticated SSH connection to a device target. Lifetime
// is bounded to one apply/verify episode; Close releases all resources
// deterministically on success or failure.
type Session struct {
	ID string

	target *target.Target
	client *ssh.Client

	mu     sync.Mutex
	tunnel *Tunnel
	sftpc  *sftp.Client
	closed bool
}

// Dial establishes a session to the target. Connection attempts are retried
// with bounded exponential backoff since the device may still be booting;
// authentication rejections are never retried.
func Dial(ctx context.Context, t *target.Target) (*Session, error) {
	auth, err := authMethods(t)
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User: t.User,
		Auth: auth,
		// Lab environment — production would verify host keys.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         t.Timeouts.Connect,
	}

	client, attempts, err := dialWithRetry(ctx, t.Retry, func() (*ssh.Client, error) {
		c, derr := ssh.Dial("tcp", t.Addr(), config)
		if derr != nil {
			if isAuthError(derr) {
				return nil, backoff.Permanent(derr)
			}
			return nil, derr
		}
		return c, nil
	})
	if err != nil {
		if isAuthError(err) {
			return nil, fmt.Errorf("ssh %s as %s: %w (%v)", t.Addr(), t.User, util.ErrAuthentication, err)
		}
		return nil, &util.ConnectionError{Host: t.Host, Attempts: attempts, Err: err}
	}

	s := &Session{
		ID:     uuid.NewString()[:8],
		target: t,
		client: client,
	}
	util.WithSession(s.ID).WithField("target", t.Name).Debugf("Connected after %d attempt(s)", attempts)
	return s, nil
}

func authMethods(t *target.Target) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if t.KeyFile != "" {
		key, err := os.ReadFile(t.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading key file for %s: %w", t.Name, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parsing key file for %s: %w", t.Name, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if t.Password != "" {
		methods = append(methods, ssh.Password(t.Password))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("target %s has no password or key_file", t.Name)
	}
	return methods, nil
}

// isAuthError reports whether an SSH dial error is a credential rejection as
// opposed to a connectivity problem. x/crypto/ssh does not expose a typed
// error for this.
func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "unable to authenticate")
}

// Target returns the session's device target.
func (s *Session) Target() *target.Target {
	return s.target
}

// Exec runs a single command on the device and returns the combined output.
// The SSH session is created per call. A failed command is returned to the
// caller, never retried: command retries are unsafe for non-idempotent CLI
// sequences. Loss of the underlying connection surfaces as ErrUnreachable.
func (s *Session) Exec(ctx context.Context, cmd string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", &util.UnreachableError{Host: s.target.Host, Err: err}
	}
	defer sess.Close()

	ctx, cancel := context.WithTimeout(ctx, s.target.Timeouts.Command)
	defer cancel()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, rerr := sess.CombinedOutput(cmd)
		done <- result{out, rerr}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if _, exited := r.err.(*ssh.ExitError); exited {
				// Command ran and returned non-zero: an operation problem,
				// not a transport problem.
				return string(r.out), fmt.Errorf("command %q failed: %w (output: %s)", cmd, r.err, strings.TrimSpace(string(r.out)))
			}
			return string(r.out), &util.UnreachableError{Host: s.target.Host, Err: r.err}
		}
		return string(r.out), nil
	case <-ctx.Done():
		sess.Close()
		return "", &util.UnreachableError{Host: s.target.Host, Err: ctx.Err()}
	}
}

// Upload replaces a remote file with the given content via SFTP.
func (s *Session) Upload(content []byte, remotePath string) error {
	s.mu.Lock()
	if s.sftpc == nil {
		c, err := sftp.NewClient(s.client)
		if err != nil {
			s.mu.Unlock()
			return &util.UnreachableError{Host: s.target.Host, Err: err}
		}
		s.sftpc = c
	}
	c := s.sftpc
	s.mu.Unlock()

	f, err := c.Create(remotePath)
	if err != nil {
		return fmt.Errorf("creating %s on %s: %w", remotePath, s.target.Host, err)
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("writing %s on %s: %w", remotePath, s.target.Host, err)
	}
	return nil
}

// OpenShell starts an interactive command shell on the device (e.g.
// "sudo vtysh") for CLI-paste configuration. prompt is the pattern that
// terminates each command's output.
func (s *Session) OpenShell(ctx context.Context, command string, prompt *regexp.Regexp) (*Shell, error) {
	return newShell(ctx, s, command, prompt)
}

// RedisAddr returns the local address forwarded to the device-side Redis,
// starting the tunnel on first use. Redis inside the NOS listens on
// 127.0.0.1:6379 only and has no authentication, so all access goes through
// the SSH tunnel.
func (s *Session) RedisAddr() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tunnel == nil {
		tun, err := NewTunnel(s.client)
		if err != nil {
			return "", &util.UnreachableError{Host: s.target.Host, Err: err}
		}
		s.tunnel = tun
	}
	return s.tunnel.LocalAddr(), nil
}

// Close releases the tunnel, SFTP channel, and SSH connection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.sftpc != nil {
		s.sftpc.Close()
	}
	if s.tunnel != nil {
		s.tunnel.Close()
	}
	err := s.client.Close()
	util.WithSession(s.ID).WithField("target", s.target.Name).Debug("Disconnected")
	return err
}
