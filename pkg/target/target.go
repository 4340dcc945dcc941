// Package target defines device targets: the addressing, credentials, and
// timing parameters for one remote endpoint. Targets are loaded from a YAML
// file and immutable for the process lifetime.
package target

import (
	"fmt"
	"time"
)

// Default timing parameters, applied by Normalize when the targets file
// leaves a field unset.
const (
	DefaultSSHPort            = 22
	DefaultConnectTimeout     = 10 * time.Second
	DefaultCommandTimeout     = 60 * time.Second
	DefaultConvergenceTimeout = 120 * time.Second
	DefaultMaxAttempts        = 5
	DefaultInitialInterval    = 2 * time.Second
	DefaultMaxInterval        = 30 * time.Second
)

// RetryPolicy bounds the exponential backoff used for session establishment.
// Command execution is never retried: a failed command returns to the caller,
// since retries are unsafe for non-idempotent CLI sequences.
type RetryPolicy struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// Timeouts holds the three independently configurable waits: connection
// establishment, a single command's response, and post-apply convergence.
type Timeouts struct {
	Connect     time.Duration `yaml:"connect"`
	Command     time.Duration `yaml:"command"`
	Convergence time.Duration `yaml:"convergence"`
}

// Target identifies one remote device endpoint. NoConfigDB marks targets
// without a structured configuration store (plain routers configured purely
// through the CLI); set/delete operations are rejected for those.
type Target struct {
	Name       string      `yaml:"-"`
	Host       string      `yaml:"host"`
	Port       int         `yaml:"port"`
	User       string      `yaml:"user"`
	Password   string      `yaml:"password"`
	KeyFile    string      `yaml:"key_file"`
	NoConfigDB bool        `yaml:"no_config_db"`
	Timeouts   Timeouts    `yaml:"timeouts"`
	Retry      RetryPolicy `yaml:"retry"`
}

// Addr returns the host:port dial address.
func (t *Target) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// Normalize fills unset fields with defaults.
func (t *Target) Normalize() {
	if t.Port == 0 {
		t.Port = DefaultSSHPort
	}
	if t.Timeouts.Connect == 0 {
		t.Timeouts.Connect = DefaultConnectTimeout
	}
	if t.Timeouts.Command == 0 {
		t.Timeouts.Command = DefaultCommandTimeout
	}
	if t.Timeouts.Convergence == 0 {
		t.Timeouts.Convergence = DefaultConvergenceTimeout
	}
	if t.Retry.MaxAttempts == 0 {
		t.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if t.Retry.InitialInterval == 0 {
		t.Retry.InitialInterval = DefaultInitialInterval
	}
	if t.Retry.MaxInterval == 0 {
		t.Retry.MaxInterval = DefaultMaxInterval
	}
}

// Validate checks the target for required fields.
func (t *Target) Validate() error {
	if t.Host == "" {
		return fmt.Errorf("target %s: host is required", t.Name)
	}
	if t.User == "" {
		return fmt.Errorf("target %s: user is required", t.Name)
	}
	if t.Retry.MaxAttempts < 1 {
		return fmt.Errorf("target %s: retry.max_attempts must be >= 1", t.Name)
	}
	return nil
}
