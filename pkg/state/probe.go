// Package state reads operational state back from a device and verifies it
// against expectations. Verification is probe-based: each probe names one
// observable condition and is polled with a bounded timeout, because
// daemon-populated state converges asynchronously after a config write.
package state

import (
	"fmt"
	"os"
	"time"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"
)

// ProbeKind selects where a probe reads from.
type ProbeKind string

const (
	// ProbeConfigDB reads a field from the structured configuration store.
	ProbeConfigDB ProbeKind = "config-db"

	// ProbeStateDB reads a field from the device's operational state store.
	ProbeStateDB ProbeKind = "state-db"

	// ProbeCommandJSON runs a device command that emits JSON and evaluates a
	// jq expression against the parsed output.
	ProbeCommandJSON ProbeKind = "command-json"
)

// Probe is one observable condition on a device.
type Probe struct {
	Name string    `yaml:"name"`
	Kind ProbeKind `yaml:"kind"`

	// config-db / state-db
	Table string `yaml:"table,omitempty"`
	Key   string `yaml:"key,omitempty"`
	Field string `yaml:"field,omitempty"`

	// command-json
	Command string `yaml:"command,omitempty"`
	Expr    string `yaml:"expr,omitempty"`

	// Equals is the expected value. For command-json probes the jq result is
	// rendered with fmt.Sprint before comparison, so numbers and booleans can
	// be written as plain YAML scalars.
	Equals string `yaml:"equals"`

	Timeout  time.Duration `yaml:"timeout,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`

	query *gojq.Query
}

// Query returns the parsed jq expression for a command-json probe.
// Only valid after Validate.
func (p *Probe) Query() *gojq.Query {
	return p.query
}

// Validate checks the probe, applies defaults, and parses the jq expression.
func (p *Probe) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("probe name is required")
	}
	switch p.Kind {
	case ProbeConfigDB, ProbeStateDB:
		if p.Table == "" || p.Key == "" || p.Field == "" {
			return fmt.Errorf("probe %s: %s requires table, key and field", p.Name, p.Kind)
		}
	case ProbeCommandJSON:
		if p.Command == "" || p.Expr == "" {
			return fmt.Errorf("probe %s: command-json requires command and expr", p.Name)
		}
		q, err := gojq.Parse(p.Expr)
		if err != nil {
			return fmt.Errorf("probe %s: expr: %w", p.Name, err)
		}
		p.query = q
	default:
		return fmt.Errorf("probe %s: unknown kind %q", p.Name, p.Kind)
	}
	if p.Timeout == 0 {
		p.Timeout = 60 * time.Second
	}
	if p.Interval == 0 {
		p.Interval = 2 * time.Second
	}
	return nil
}

// ProbeSet is a named group of probes loaded from a descriptor file.
type ProbeSet struct {
	Name   string  `yaml:"name"`
	Probes []Probe `yaml:"probes"`
}

// Validate checks the set and all contained probes.
func (ps *ProbeSet) Validate() error {
	if ps.Name == "" {
		return fmt.Errorf("probe set name is required")
	}
	if len(ps.Probes) == 0 {
		return fmt.Errorf("probe set %s has no probes", ps.Name)
	}
	for i := range ps.Probes {
		if err := ps.Probes[i].Validate(); err != nil {
			return fmt.Errorf("probe set %s: %w", ps.Name, err)
		}
	}
	return nil
}

// LoadProbeSet reads and validates a probe set descriptor from a YAML file.
func LoadProbeSet(path string) (*ProbeSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading probe set %s: %w", path, err)
	}
	var ps ProbeSet
	if err := yaml.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("parsing probe set %s: %w", path, err)
	}
	if err := ps.Validate(); err != nil {
		return nil, err
	}
	return &ps, nil
}
