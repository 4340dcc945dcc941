package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fablab-network/fabpush/pkg/util"
)

// Source is where a Reader observes device state. Implemented by
// device.Device over the session's Redis tunnel and command channel.
type Source interface {
	GetConfigEntry(table, key string) (map[string]string, error)
	GetStateEntry(table, key string) (map[string]string, error)
	Exec(ctx context.Context, command string) (string, error)
}

// Outcome is the terminal result of one probe.
type Outcome string

const (
	// Matched: the observed value equaled the expectation within the window.
	Matched Outcome = "Matched"

	// Timeout: the probe polled for its full window without ever matching.
	Timeout Outcome = "Timeout"

	// Unreachable: the device could not be queried at all.
	Unreachable Outcome = "Unreachable"
)

// Result reports one probe's outcome. LastObserved is the value seen on the
// final poll so a Timeout report says what the device actually contained.
type Result struct {
	Probe        string
	Outcome      Outcome
	Polls        int
	LastObserved string
	Err          error
}

func (r *Result) String() string {
	switch r.Outcome {
	case Matched:
		return fmt.Sprintf("%s: matched after %d poll(s)", r.Probe, r.Polls)
	case Timeout:
		return fmt.Sprintf("%s: timed out after %d poll(s), last observed %q", r.Probe, r.Polls, r.LastObserved)
	default:
		return fmt.Sprintf("%s: unreachable: %v", r.Probe, r.Err)
	}
}

// Reader polls probes against one device.
type Reader struct {
	device string
	source Source
}

// NewReader creates a Reader for the named device.
func NewReader(device string, source Source) *Reader {
	return &Reader{device: device, source: source}
}

// Run polls one probe until it matches, its window expires, or the device
// becomes unreachable. A probe that does not match yet is not an error;
// it is polled again after the probe's interval.
func (r *Reader) Run(ctx context.Context, p *Probe) *Result {
	log := util.WithProbe(p.Name).WithField("target", r.device)
	res := &Result{Probe: p.Name}

	deadline := time.Now().Add(p.Timeout)
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		res.Polls++
		observed, err := r.observe(ctx, p)
		switch {
		case err != nil && isUnreachable(err):
			res.Outcome = Unreachable
			res.Err = &util.UnreachableError{Host: r.device, Err: err}
			log.Errorf("probe unreachable: %v", err)
			return res
		case err == nil && observed == p.Equals:
			res.Outcome = Matched
			res.LastObserved = observed
			log.Debugf("matched after %d poll(s)", res.Polls)
			return res
		case err != nil:
			// Observation errors that are not transport failures (entry
			// absent, field missing, expression yields nothing) mean the
			// state has not converged yet. Keep polling.
			log.Debugf("poll %d: %v", res.Polls, err)
			res.LastObserved = ""
		default:
			log.Debugf("poll %d: observed %q, want %q", res.Polls, observed, p.Equals)
			res.LastObserved = observed
		}

		if time.Now().After(deadline) {
			res.Outcome = Timeout
			res.Err = fmt.Errorf("%w: probe %s after %s", util.ErrVerificationTimeout, p.Name, p.Timeout)
			log.Warnf("probe timed out, last observed %q", res.LastObserved)
			return res
		}
		select {
		case <-ctx.Done():
			res.Outcome = Unreachable
			res.Err = &util.UnreachableError{Host: r.device, Err: ctx.Err()}
			return res
		case <-ticker.C:
		}
	}
}

// RunAll polls every probe in the set sequentially and returns all results
// plus an aggregate pass/fail.
func (r *Reader) RunAll(ctx context.Context, ps *ProbeSet) ([]*Result, bool) {
	results := make([]*Result, 0, len(ps.Probes))
	ok := true
	for i := range ps.Probes {
		res := r.Run(ctx, &ps.Probes[i])
		results = append(results, res)
		if res.Outcome != Matched {
			ok = false
		}
		if res.Outcome == Unreachable {
			// No point hammering a dead device with the remaining probes.
			for j := i + 1; j < len(ps.Probes); j++ {
				results = append(results, &Result{
					Probe:   ps.Probes[j].Name,
					Outcome: Unreachable,
					Err:     res.Err,
				})
			}
			break
		}
	}
	return results, ok
}

// observe takes one sample of the probe's source.
func (r *Reader) observe(ctx context.Context, p *Probe) (string, error) {
	switch p.Kind {
	case ProbeConfigDB, ProbeStateDB:
		var entry map[string]string
		var err error
		if p.Kind == ProbeConfigDB {
			entry, err = r.source.GetConfigEntry(p.Table, p.Key)
		} else {
			entry, err = r.source.GetStateEntry(p.Table, p.Key)
		}
		if err != nil {
			return "", err
		}
		if entry == nil {
			return "", fmt.Errorf("entry %s|%s absent", p.Table, p.Key)
		}
		val, ok := entry[p.Field]
		if !ok {
			return "", fmt.Errorf("entry %s|%s has no field %s", p.Table, p.Key, p.Field)
		}
		return val, nil

	case ProbeCommandJSON:
		out, err := r.source.Exec(ctx, p.Command)
		if err != nil {
			return "", err
		}
		return evalJSON(p, out)
	}
	return "", fmt.Errorf("unknown probe kind %q", p.Kind)
}

// evalJSON parses the command output as JSON and evaluates the probe's jq
// expression against it. The first non-null result is rendered as a string.
func evalJSON(p *Probe, out string) (string, error) {
	var doc interface{}
	dec := json.NewDecoder(strings.NewReader(out))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return "", fmt.Errorf("output is not JSON: %w", err)
	}

	iter := p.Query().Run(normalizeNumbers(doc))
	for {
		v, ok := iter.Next()
		if !ok {
			return "", fmt.Errorf("expression %q yields no result", p.Expr)
		}
		if err, isErr := v.(error); isErr {
			return "", fmt.Errorf("expression %q: %w", p.Expr, err)
		}
		if v == nil {
			continue
		}
		return fmt.Sprint(v), nil
	}
}

// normalizeNumbers rewrites json.Number values into the int/float forms gojq
// expects from a plainly-decoded document.
func normalizeNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		f, _ := t.Float64()
		return f
	case map[string]interface{}:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []interface{}:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	default:
		return v
	}
}

func isUnreachable(err error) bool {
	return errors.Is(err, util.ErrUnreachable) || errors.Is(err, util.ErrConnection)
}
