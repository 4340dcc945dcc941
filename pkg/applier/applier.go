// Package applier executes config bundles against a device: structured
// table writes, interactive CLI replay, file replacement, and the bundle's
// post-apply action. Execution is strictly ordered; the first failure aborts
// the bundle, remaining operations are marked skipped, and the report says
// exactly how far the apply got.
package applier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"regexp"
	"time"

	"github.com/fablab-network/fabpush/pkg/bundle"
	"github.com/fablab-network/fabpush/pkg/util"
)

// ConfigStore is the structured configuration interface of a device.
// Implemented by configdb.Client; nil for devices with no table store
// (plain FRR routers take cli operations only).
type ConfigStore interface {
	Set(table, key string, fields map[string]string) error
	Delete(table, key string) error
	Ping() error
}

// Shell is an interactive command shell on the device. Send replays one
// line and returns everything the device printed in response.
type Shell interface {
	Send(ctx context.Context, line string) (string, error)
	Close() error
}

// Runner executes one-shot commands, uploads files, and opens interactive
// shells. Implemented by device.Device over the SSH session.
type Runner interface {
	Exec(ctx context.Context, command string) (string, error)
	Upload(content []byte, remotePath string) error
	OpenShell(ctx context.Context, command string, prompt *regexp.Regexp) (Shell, error)
}

// Default device-side commands and shell settings. SONiC ships FRR's vtysh
// as the routing CLI; config save/reload are the sonic-utilities entry points.
const (
	DefaultShellCommand  = "sudo vtysh"
	DefaultCommitCommand = "sudo config save -y"
	DefaultReloadCommand = "sudo config reload -y"
)

var defaultPrompt = regexp.MustCompile(`(?m)[\w.\-]+(\(config[^)]*\))?[#>] ?$`)

// Options tunes the apply loop. Zero values select the defaults above.
type Options struct {
	ShellCommand  string
	ShellPrompt   *regexp.Regexp
	CommitCommand string
	ReloadCommand string

	// Reload convergence: how long to wait for the config store to answer
	// again after a reload, and how often to poll it.
	ConvergenceTimeout time.Duration
	PollInterval       time.Duration
}

func (o *Options) normalize() {
	if o.ShellCommand == "" {
		o.ShellCommand = DefaultShellCommand
	}
	if o.ShellPrompt == nil {
		o.ShellPrompt = defaultPrompt
	}
	if o.CommitCommand == "" {
		o.CommitCommand = DefaultCommitCommand
	}
	if o.ReloadCommand == "" {
		o.ReloadCommand = DefaultReloadCommand
	}
	if o.ConvergenceTimeout == 0 {
		o.ConvergenceTimeout = 120 * time.Second
	}
	if o.PollInterval == 0 {
		o.PollInterval = 3 * time.Second
	}
}

// Applier executes bundles against one device. It does not own the session;
// the caller connects, applies, and closes.
type Applier struct {
	device string
	store  ConfigStore
	runner Runner
	opts   Options
}

// New creates an Applier for the named device. store may be nil when the
// device has no structured configuration interface.
func New(device string, store ConfigStore, runner Runner, opts Options) *Applier {
	opts.normalize()
	return &Applier{device: device, store: store, runner: runner, opts: opts}
}

// Apply executes all operations of the bundle in order, then the post-apply
// action. The returned report is never nil and always has one result per
// operation. Apply never panics on a failing device; the failure mode is
// encoded in the report status.
func (a *Applier) Apply(ctx context.Context, b *bundle.Bundle) *Report {
	log := util.WithBundle(b.Name).WithField("target", a.device)
	log.Infof("applying bundle (%d operations, post_apply=%s)", len(b.Operations), b.PostApply)

	rep := &Report{
		Device:      a.device,
		Bundle:      b.Name,
		FailedIndex: -1,
		Results:     make([]OpResult, 0, len(b.Operations)),
	}

	var shell Shell
	defer func() {
		if shell != nil {
			shell.Close()
		}
	}()

	for i := range b.Operations {
		op := &b.Operations[i]
		if err := ctx.Err(); err != nil {
			a.abort(rep, b, i, op.Describe(), "", err)
			return rep
		}

		log.Debugf("operation %d: %s", i, op.Describe())
		out, err := a.applyOp(ctx, &shell, i, op)
		if err != nil {
			a.abort(rep, b, i, op.Describe(), out, err)
			return rep
		}
		rep.Results = append(rep.Results, OpResult{
			Index:  i,
			Op:     op.Describe(),
			State:  OpApplied,
			Output: out,
		})
	}

	// The CLI shell must be torn down before a reload; a hanging vtysh
	// session can block the management daemon restart.
	if shell != nil {
		shell.Close()
		shell = nil
	}

	if err := a.postApply(ctx, b.PostApply); err != nil {
		rep.Err = err
		rep.Status = StatusPartialFailure
		log.Errorf("post-apply %s failed: %v", b.PostApply, err)
		return rep
	}

	rep.Status = StatusApplied
	log.Infof("bundle applied")
	return rep
}

// abort records the failing operation, marks the rest skipped, and
// classifies the bundle status: a transport loss before anything was
// confirmed is TransportFailure, everything else is PartialFailure.
func (a *Applier) abort(rep *Report, b *bundle.Bundle, index int, opDesc, output string, err error) {
	rep.Results = append(rep.Results, OpResult{
		Index:  index,
		Op:     opDesc,
		State:  OpFailed,
		Output: output,
		Err:    err,
	})
	for j := index + 1; j < len(b.Operations); j++ {
		rep.Results = append(rep.Results, OpResult{
			Index: j,
			Op:    b.Operations[j].Describe(),
			State: OpSkipped,
		})
	}
	rep.FailedIndex = index
	rep.Err = err
	if index == 0 && isTransportErr(err) {
		rep.Status = StatusTransportFailure
	} else {
		rep.Status = StatusPartialFailure
	}
	util.WithBundle(b.Name).WithField("target", a.device).Errorf("aborted at operation %d: %v", index, err)
}

func (a *Applier) applyOp(ctx context.Context, shell *Shell, index int, op *bundle.Operation) (string, error) {
	switch op.Kind {
	case bundle.OpSet:
		if a.store == nil {
			return "", &util.OperationError{Index: index, Op: op.Describe(),
				Err: errors.New("device has no structured configuration interface")}
		}
		if err := a.store.Set(op.Table, op.Key, op.Fields); err != nil {
			return "", a.wrapStoreErr(index, op, err)
		}
		return "", nil

	case bundle.OpDelete:
		if a.store == nil {
			return "", &util.OperationError{Index: index, Op: op.Describe(),
				Err: errors.New("device has no structured configuration interface")}
		}
		if err := a.store.Delete(op.Table, op.Key); err != nil {
			return "", a.wrapStoreErr(index, op, err)
		}
		return "", nil

	case bundle.OpCLI:
		if *shell == nil {
			sh, err := a.runner.OpenShell(ctx, a.opts.ShellCommand, a.opts.ShellPrompt)
			if err != nil {
				return "", err
			}
			*shell = sh
		}
		out, err := (*shell).Send(ctx, op.Command)
		if err != nil {
			return out, err
		}
		// The shell reports success even for rejected lines; the response
		// text is the only failure signal.
		if op.Reject().MatchString(out) {
			return out, &util.OperationError{Index: index, Op: op.Describe(), Output: out}
		}
		return out, nil

	case bundle.OpCopy:
		content, err := os.ReadFile(op.LocalPath)
		if err != nil {
			return "", &util.OperationError{Index: index, Op: op.Describe(), Err: err}
		}
		if err := a.runner.Upload(content, op.RemotePath); err != nil {
			if isTransportErr(err) {
				return "", err
			}
			return "", &util.OperationError{Index: index, Op: op.Describe(), Err: err}
		}
		return "", nil
	}
	return "", &util.OperationError{Index: index, Op: op.Describe(),
		Err: fmt.Errorf("unknown operation kind %q", op.Kind)}
}

// wrapStoreErr classifies a config-store failure: a dead connection is a
// transport problem, anything else is the device rejecting the write.
func (a *Applier) wrapStoreErr(index int, op *bundle.Operation, err error) error {
	if isTransportErr(err) {
		return &util.UnreachableError{Host: a.device, Err: err}
	}
	return &util.OperationError{Index: index, Op: op.Describe(), Err: err}
}

func (a *Applier) postApply(ctx context.Context, action bundle.PostApply) error {
	switch action {
	case bundle.PostApplyNone, "":
		return nil

	case bundle.PostApplyCommit:
		out, err := a.runner.Exec(ctx, a.opts.CommitCommand)
		if err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		util.WithTarget(a.device).Debugf("commit output: %s", out)
		return nil

	case bundle.PostApplyReload:
		out, err := a.runner.Exec(ctx, a.opts.ReloadCommand)
		if err != nil {
			return fmt.Errorf("reload: %w", err)
		}
		util.WithTarget(a.device).Debugf("reload output: %s", out)
		return a.waitConverged(ctx)
	}
	return fmt.Errorf("unknown post_apply %q", action)
}

// waitConverged polls the config store until it answers again after a
// reload. Converged means the device's configuration database accepts
// queries; daemon-level state is the verification layer's concern.
func (a *Applier) waitConverged(ctx context.Context) error {
	if a.store == nil {
		return nil
	}

	log := util.WithTarget(a.device)
	deadline := time.Now().Add(a.opts.ConvergenceTimeout)
	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	for {
		if err := a.store.Ping(); err == nil {
			log.Debugf("device converged after reload")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s", util.ErrConvergenceTimeout, a.opts.ConvergenceTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// isTransportErr reports whether err is a session/connection-level failure
// rather than the device rejecting an operation.
func isTransportErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, util.ErrUnreachable) || errors.Is(err, util.ErrConnection) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
