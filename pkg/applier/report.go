package applier

import "fmt"

// Status is the per-bundle outcome reported to the caller.
type Status string

const (
	// StatusApplied: all operations succeeded and the post-apply action succeeded.
	StatusApplied Status = "Applied"

	// StatusPartialFailure: some operations succeeded, then one failed. The
	// bundle was aborted, remaining operations were skipped, and device state
	// is left partially modified. Remediation is the caller's decision.
	StatusPartialFailure Status = "PartialFailure"

	// StatusTransportFailure: the session was lost before any operation could
	// be confirmed.
	StatusTransportFailure Status = "TransportFailure"
)

// OpState records what happened to one operation.
type OpState string

const (
	OpApplied OpState = "applied"
	OpFailed  OpState = "failed"
	OpSkipped OpState = "skipped"
)

// OpResult is the per-operation outcome.
type OpResult struct {
	Index  int
	Op     string
	State  OpState
	Output string // raw device response, where available
	Err    error
}

// Report is the Applier's result for one bundle. FailedIndex is -1 when
// every operation succeeded.
type Report struct {
	Device      string
	Bundle      string
	Status      Status
	Results     []OpResult
	FailedIndex int
	Err         error
}

// AppliedCount returns the number of operations confirmed applied.
func (r *Report) AppliedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.State == OpApplied {
			n++
		}
	}
	return n
}

// Summary returns a one-line, operator-facing description of the outcome.
func (r *Report) Summary() string {
	if r.Status == StatusApplied {
		return fmt.Sprintf("%s: %s applied (%d operations)", r.Device, r.Bundle, len(r.Results))
	}
	msg := fmt.Sprintf("%s: %s %s (%d/%d applied)", r.Device, r.Bundle, r.Status, r.AppliedCount(), len(r.Results))
	if r.FailedIndex >= 0 {
		msg += fmt.Sprintf(", failed at operation %d", r.FailedIndex)
	}
	if r.Err != nil {
		msg += ": " + r.Err.Error()
	}
	return msg
}
