package transport

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sync"
	"time"

	"context"

	"golang.org/x/crypto/ssh"

	"github.com/fablab-network/fabpush/pkg/util"
)

// Shell is an interactive command shell on the device, used for CLI-paste
// configuration of surfaces the structured interface does not cover (e.g.
// FRR routing policy via vtysh). Each Send writes one line and captures the
// output up to the next prompt, so rejections can be detected per command —
// interactive shells report a clean exit even for rejected lines.
type Shell struct {
	sess     *ssh.Session
	stdin    io.WriteCloser
	chunks   chan []byte
	errs     chan error
	done     chan struct{}
	closeOne sync.Once
	prompt   *regexp.Regexp
	wait     time.Duration
	host     string
	buf      bytes.Buffer
}

func newShell(ctx context.Context, s *Session, command string, prompt *regexp.Regexp) (*Shell, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, &util.UnreachableError{Host: s.target.Host, Err: err}
	}

	// No echo: the captured output should be the device's response, not our
	// own input played back.
	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 115200,
		ssh.TTY_OP_OSPEED: 115200,
	}
	if err := sess.RequestPty("vt100", 80, 512, modes); err != nil {
		sess.Close()
		return nil, fmt.Errorf("requesting pty on %s: %w", s.target.Host, err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, err
	}

	if command == "" {
		err = sess.Shell()
	} else {
		err = sess.Start(command)
	}
	if err != nil {
		sess.Close()
		return nil, &util.UnreachableError{Host: s.target.Host, Err: err}
	}

	sh := &Shell{
		sess:   sess,
		stdin:  stdin,
		chunks: make(chan []byte, 16),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
		prompt: prompt,
		wait:   s.target.Timeouts.Command,
		host:   s.target.Host,
	}
	go sh.pump(stdout)

	// Drain the banner up to the first prompt so the first Send starts clean.
	if _, err := sh.readToPrompt(ctx); err != nil {
		sh.Close()
		return nil, err
	}
	return sh, nil
}

// pump reads the shell's output into chunks until EOF or Close. After Close
// nobody drains chunks, so every send must also select on done or the
// goroutine leaks with a full channel.
func (sh *Shell) pump(r io.Reader) {
	for {
		buf := make([]byte, 4096)
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case sh.chunks <- buf[:n]:
			case <-sh.done:
				return
			}
		}
		if err != nil {
			select {
			case sh.errs <- err:
			case <-sh.done:
			}
			return
		}
	}
}

// Send writes one command line and returns the output captured up to the
// next prompt, with the prompt itself stripped.
func (sh *Shell) Send(ctx context.Context, line string) (string, error) {
	if _, err := io.WriteString(sh.stdin, line+"\n"); err != nil {
		return "", &util.UnreachableError{Host: sh.host, Err: err}
	}
	return sh.readToPrompt(ctx)
}

func (sh *Shell) readToPrompt(ctx context.Context) (string, error) {
	deadline := time.NewTimer(sh.wait)
	defer deadline.Stop()

	for {
		if loc := sh.prompt.FindIndex(sh.buf.Bytes()); loc != nil {
			out := string(sh.buf.Bytes()[:loc[0]])
			sh.buf.Next(loc[1])
			return out, nil
		}

		select {
		case chunk := <-sh.chunks:
			sh.buf.Write(chunk)
		case err := <-sh.errs:
			return sh.buf.String(), &util.UnreachableError{Host: sh.host, Err: err}
		case <-deadline.C:
			return sh.buf.String(), &util.UnreachableError{Host: sh.host, Err: fmt.Errorf("no prompt within %s", sh.wait)}
		case <-ctx.Done():
			return sh.buf.String(), &util.UnreachableError{Host: sh.host, Err: ctx.Err()}
		}
	}
}

// Close ends the shell session and releases the pump goroutine.
func (sh *Shell) Close() error {
	sh.closeOne.Do(func() { close(sh.done) })
	sh.stdin.Close()
	return sh.sess.Close()
}
