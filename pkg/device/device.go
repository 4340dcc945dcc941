// Package device binds a transport session to the device's configuration
// and state stores. A Device is the concrete backend for both applying
// bundles and running verification probes; it satisfies the applier's
// ConfigStore/Runner and the state reader's Source.
package device

import (
	"context"
	"fmt"
	"regexp"

	"github.com/fablab-network/fabpush/pkg/applier"
	"github.com/fablab-network/fabpush/pkg/configdb"
	"github.com/fablab-network/fabpush/pkg/target"
	"github.com/fablab-network/fabpush/pkg/transport"
	"github.com/fablab-network/fabpush/pkg/util"
)

// Device is one connected target. The Redis clients ride the session's
// forwarded port and are created lazily; plain FRR targets never touch them.
type Device struct {
	Name string

	target  *target.Target
	session *transport.Session

	config *configdb.Client
	state  *configdb.StateClient
}

// Connect dials the target and returns a bound Device.
func Connect(ctx context.Context, t *target.Target) (*Device, error) {
	sess, err := transport.Dial(ctx, t)
	if err != nil {
		return nil, err
	}
	return &Device{Name: t.Name, target: t, session: sess}, nil
}

// Session exposes the underlying transport session.
func (d *Device) Session() *transport.Session {
	return d.session
}

// ConfigDB returns the structured configuration client, opening the Redis
// tunnel on first use.
func (d *Device) ConfigDB() (*configdb.Client, error) {
	if d.config != nil {
		return d.config, nil
	}
	addr, err := d.session.RedisAddr()
	if err != nil {
		return nil, err
	}
	d.config = configdb.NewClient(addr)
	if err := d.config.Ping(); err != nil {
		d.config = nil
		return nil, &util.UnreachableError{Host: d.target.Host, Err: fmt.Errorf("config store: %w", err)}
	}
	return d.config, nil
}

// StateDB returns the operational state client, opening the Redis tunnel on
// first use.
func (d *Device) StateDB() (*configdb.StateClient, error) {
	if d.state != nil {
		return d.state, nil
	}
	addr, err := d.session.RedisAddr()
	if err != nil {
		return nil, err
	}
	d.state = configdb.NewStateClient(addr)
	if err := d.state.Ping(); err != nil {
		d.state = nil
		return nil, &util.UnreachableError{Host: d.target.Host, Err: fmt.Errorf("state store: %w", err)}
	}
	return d.state, nil
}

// Set writes a structured configuration entry.
func (d *Device) Set(table, key string, fields map[string]string) error {
	c, err := d.ConfigDB()
	if err != nil {
		return err
	}
	return c.Set(table, key, fields)
}

// Delete removes a structured configuration entry.
func (d *Device) Delete(table, key string) error {
	c, err := d.ConfigDB()
	if err != nil {
		return err
	}
	return c.Delete(table, key)
}

// Ping checks that the structured configuration store answers.
func (d *Device) Ping() error {
	c, err := d.ConfigDB()
	if err != nil {
		return err
	}
	return c.Ping()
}

// Exec runs a one-shot command on the device.
func (d *Device) Exec(ctx context.Context, command string) (string, error) {
	return d.session.Exec(ctx, command)
}

// Upload replaces a remote file with the given content.
func (d *Device) Upload(content []byte, remotePath string) error {
	return d.session.Upload(content, remotePath)
}

// OpenShell starts an interactive shell for CLI-paste configuration.
func (d *Device) OpenShell(ctx context.Context, command string, prompt *regexp.Regexp) (applier.Shell, error) {
	sh, err := d.session.OpenShell(ctx, command, prompt)
	if err != nil {
		return nil, err
	}
	return sh, nil
}

// GetConfigEntry reads one configuration entry as a raw field map.
// Returns (nil, nil) if the entry does not exist.
func (d *Device) GetConfigEntry(table, key string) (map[string]string, error) {
	c, err := d.ConfigDB()
	if err != nil {
		return nil, err
	}
	vals, err := c.Get(table, key)
	if err != nil {
		return nil, &util.UnreachableError{Host: d.target.Host, Err: err}
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return vals, nil
}

// GetStateEntry reads one operational state entry as a raw field map.
// Returns (nil, nil) if the entry does not exist.
func (d *Device) GetStateEntry(table, key string) (map[string]string, error) {
	c, err := d.StateDB()
	if err != nil {
		return nil, err
	}
	vals, err := c.GetEntry(table, key)
	if err != nil {
		return nil, &util.UnreachableError{Host: d.target.Host, Err: err}
	}
	return vals, nil
}

// LoadConfig writes a parsed config snapshot in one transaction, so a
// half-loaded configuration never becomes visible to the device daemons.
func (d *Device) LoadConfig(changes []configdb.TableChange) error {
	c, err := d.ConfigDB()
	if err != nil {
		return err
	}
	if err := c.PipelineSet(changes); err != nil {
		return &util.UnreachableError{Host: d.target.Host, Err: err}
	}
	return nil
}

// ConfigKeys lists the entry keys of one configuration table.
func (d *Device) ConfigKeys(table string) ([]string, error) {
	c, err := d.ConfigDB()
	if err != nil {
		return nil, err
	}
	keys, err := c.TableKeys(table)
	if err != nil {
		return nil, &util.UnreachableError{Host: d.target.Host, Err: err}
	}
	return keys, nil
}

// StateKeys lists the entry keys of one operational state table.
func (d *Device) StateKeys(table string) ([]string, error) {
	c, err := d.StateDB()
	if err != nil {
		return nil, err
	}
	keys, err := c.TableKeys(table)
	if err != nil {
		return nil, &util.UnreachableError{Host: d.target.Host, Err: err}
	}
	return keys, nil
}

// Snapshot reads the full structured configuration into the typed model.
func (d *Device) Snapshot() (*configdb.ConfigDB, error) {
	c, err := d.ConfigDB()
	if err != nil {
		return nil, err
	}
	db, err := c.GetAll()
	if err != nil {
		return nil, &util.UnreachableError{Host: d.target.Host, Err: err}
	}
	return db, nil
}

// Close releases the Redis clients and the transport session.
func (d *Device) Close() error {
	if d.config != nil {
		d.config.Close()
		d.config = nil
	}
	if d.state != nil {
		d.state.Close()
		d.state = nil
	}
	return d.session.Close()
}
