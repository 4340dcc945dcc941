// Package bundle defines config bundles: named, ordered collections of
// configuration operations applied to one device as a single logical unit,
// plus a post-apply action. Order matters — later operations may depend on
// entities created by earlier ones (an interface must exist before a VLAN
// membership referencing it).
package bundle

import (
	"fmt"
	"regexp"
)

// OpKind selects the apply strategy for one operation.
type OpKind string

const (
	// OpSet writes fields of a keyed entry through the device's structured
	// configuration interface. Idempotent by construction.
	OpSet OpKind = "set"

	// OpDelete removes a keyed entry. Idempotent by construction.
	OpDelete OpKind = "delete"

	// OpCLI replays a literal command-language statement into an interactive
	// shell. The shell typically reports success even for rejected lines, so
	// the output is matched against a rejection pattern instead.
	OpCLI OpKind = "cli"

	// OpCopy replaces a remote file with local content.
	OpCopy OpKind = "copy"
)

// PostApply is the device-side action executed after all operations in a
// bundle complete.
type PostApply string

const (
	// PostApplyNone leaves the running configuration as written.
	PostApplyNone PostApply = "none"

	// PostApplyCommit persists the running configuration to disk without a
	// reload.
	PostApplyCommit PostApply = "commit"

	// PostApplyReload triggers a full reconfiguration reload and waits for
	// the device to converge.
	PostApplyReload PostApply = "reload"
)

// DefaultRejectPattern matches the FRR/vtysh error convention: rejected
// lines are answered with a message starting with '%'.
const DefaultRejectPattern = `(?m)^%`

// Operation is a single named change. Exactly the fields for its kind are
// set; Validate enforces this.
type Operation struct {
	Kind OpKind `yaml:"kind"`

	// set / delete
	Table  string            `yaml:"table,omitempty"`
	Key    string            `yaml:"key,omitempty"`
	Fields map[string]string `yaml:"fields,omitempty"`

	// cli
	Command       string `yaml:"command,omitempty"`
	RejectPattern string `yaml:"reject_pattern,omitempty"`

	// copy
	LocalPath  string `yaml:"local_path,omitempty"`
	RemotePath string `yaml:"remote_path,omitempty"`

	reject *regexp.Regexp
}

// Describe returns a short human-readable summary used in reports and logs.
func (op *Operation) Describe() string {
	switch op.Kind {
	case OpSet, OpDelete:
		return fmt.Sprintf("%s %s|%s", op.Kind, op.Table, op.Key)
	case OpCLI:
		return fmt.Sprintf("cli %q", op.Command)
	case OpCopy:
		return fmt.Sprintf("copy %s -> %s", op.LocalPath, op.RemotePath)
	}
	return string(op.Kind)
}

// Reject returns the compiled rejection pattern for a CLI operation.
// Only valid after Validate.
func (op *Operation) Reject() *regexp.Regexp {
	return op.reject
}

func (op *Operation) validate(index int) error {
	switch op.Kind {
	case OpSet:
		if op.Table == "" || op.Key == "" {
			return fmt.Errorf("operation %d: set requires table and key", index)
		}
	case OpDelete:
		if op.Table == "" || op.Key == "" {
			return fmt.Errorf("operation %d: delete requires table and key", index)
		}
		if len(op.Fields) > 0 {
			return fmt.Errorf("operation %d: delete takes no fields", index)
		}
	case OpCLI:
		if op.Command == "" {
			return fmt.Errorf("operation %d: cli requires command", index)
		}
		pattern := op.RejectPattern
		if pattern == "" {
			pattern = DefaultRejectPattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("operation %d: reject_pattern: %w", index, err)
		}
		op.reject = re
	case OpCopy:
		if op.LocalPath == "" || op.RemotePath == "" {
			return fmt.Errorf("operation %d: copy requires local_path and remote_path", index)
		}
	default:
		return fmt.Errorf("operation %d: unknown kind %q", index, op.Kind)
	}
	return nil
}

// Bundle is an ordered sequence of operations plus a post-apply action.
// Atomic from the operator's perspective: either the whole bundle reaches
// the device and the post-apply action runs, or the driver reports failure
// without asserting success.
type Bundle struct {
	Name       string      `yaml:"name"`
	PostApply  PostApply   `yaml:"post_apply"`
	Operations []Operation `yaml:"operations"`
}

// Validate checks the bundle and compiles per-operation rejection patterns.
func (b *Bundle) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("bundle name is required")
	}
	if len(b.Operations) == 0 {
		return fmt.Errorf("bundle %s has no operations", b.Name)
	}
	if b.PostApply == "" {
		b.PostApply = PostApplyNone
	}
	switch b.PostApply {
	case PostApplyNone, PostApplyCommit, PostApplyReload:
	default:
		return fmt.Errorf("bundle %s: unknown post_apply %q", b.Name, b.PostApply)
	}
	for i := range b.Operations {
		if err := b.Operations[i].validate(i); err != nil {
			return fmt.Errorf("bundle %s: %w", b.Name, err)
		}
	}
	return nil
}
