// Package fleet runs bundle applies and probe verifications across multiple
// targets concurrently. Operations against any single target stay strictly
// sequential; concurrency exists only across targets.
package fleet

import (
	"context"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/fablab-network/fabpush/pkg/applier"
	"github.com/fablab-network/fabpush/pkg/bundle"
	"github.com/fablab-network/fabpush/pkg/device"
	"github.com/fablab-network/fabpush/pkg/state"
	"github.com/fablab-network/fabpush/pkg/target"
	"github.com/fablab-network/fabpush/pkg/util"
)

// ApplyResult pairs one target with its apply report. Err is set when the
// target could not even be connected; Report is nil in that case.
type ApplyResult struct {
	Target string
	Report *applier.Report
	Err    error
}

// VerifyResult pairs one target with its probe results.
type VerifyResult struct {
	Target  string
	Results []*state.Result
	OK      bool
	Err     error
}

// Apply runs the bundle on every target concurrently and returns per-target
// results sorted by target name, plus an aggregate error covering every
// target that did not reach Applied.
func Apply(ctx context.Context, targets []*target.Target, b *bundle.Bundle, opts applier.Options) ([]ApplyResult, error) {
	results := make([]ApplyResult, len(targets))

	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t *target.Target) {
			defer wg.Done()
			results[i] = applyOne(ctx, t, b, opts)
		}(i, t)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Target < results[j].Target })

	var merr *multierror.Error
	for _, r := range results {
		switch {
		case r.Err != nil:
			merr = multierror.Append(merr, &targetError{r.Target, r.Err})
		case r.Report.Status != applier.StatusApplied:
			merr = multierror.Append(merr, &targetError{r.Target, r.Report.Err})
		}
	}
	return results, merr.ErrorOrNil()
}

func applyOne(ctx context.Context, t *target.Target, b *bundle.Bundle, opts applier.Options) ApplyResult {
	dev, err := device.Connect(ctx, t)
	if err != nil {
		util.WithTarget(t.Name).Errorf("connect failed: %v", err)
		return ApplyResult{Target: t.Name, Err: err}
	}
	defer dev.Close()

	var store applier.ConfigStore
	if !t.NoConfigDB {
		store = dev
	}
	if opts.ConvergenceTimeout == 0 {
		opts.ConvergenceTimeout = t.Timeouts.Convergence
	}
	rep := applier.New(t.Name, store, dev, opts).Apply(ctx, b)
	return ApplyResult{Target: t.Name, Report: rep}
}

// Verify runs the probe set on every target concurrently.
func Verify(ctx context.Context, targets []*target.Target, ps *state.ProbeSet) ([]VerifyResult, error) {
	results := make([]VerifyResult, len(targets))

	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t *target.Target) {
			defer wg.Done()
			results[i] = verifyOne(ctx, t, ps)
		}(i, t)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Target < results[j].Target })

	var merr *multierror.Error
	for _, r := range results {
		switch {
		case r.Err != nil:
			merr = multierror.Append(merr, &targetError{r.Target, r.Err})
		case !r.OK:
			for _, pr := range r.Results {
				if pr.Outcome != state.Matched {
					merr = multierror.Append(merr, &targetError{r.Target, pr.Err})
				}
			}
		}
	}
	return results, merr.ErrorOrNil()
}

func verifyOne(ctx context.Context, t *target.Target, ps *state.ProbeSet) VerifyResult {
	dev, err := device.Connect(ctx, t)
	if err != nil {
		util.WithTarget(t.Name).Errorf("connect failed: %v", err)
		return VerifyResult{Target: t.Name, Err: err}
	}
	defer dev.Close()

	results, ok := state.NewReader(t.Name, dev).RunAll(ctx, ps)
	return VerifyResult{Target: t.Name, Results: results, OK: ok}
}

type targetError struct {
	target string
	err    error
}

func (e *targetError) Error() string {
	if e.err == nil {
		return e.target + ": failed"
	}
	return e.target + ": " + e.err.Error()
}

func (e *targetError) Unwrap() error {
	return e.err
}
