package applier

import (
	"context"
	"testing"
	"time"

	"github.com/fablab-network/fabpush/pkg/bundle"
	"github.com/fablab-network/fabpush/pkg/state"
)

// storeSource exposes the fake config store to the state reader, the way a
// connected device exposes CONFIG_DB to probes.
type storeSource struct {
	store *fakeStore
}

func (s storeSource) GetConfigEntry(table, key string) (map[string]string, error) {
	return s.store.entries[table+"|"+key], nil
}

func (s storeSource) GetStateEntry(table, key string) (map[string]string, error) {
	return nil, nil
}

func (s storeSource) Exec(ctx context.Context, command string) (string, error) {
	return "", nil
}

// Apply a VTEP baseline with a reload, then verify the tunnel source through
// a probe — the full apply-then-verify cycle on fakes.
func TestApplyThenVerifyScenario(t *testing.T) {
	store := newFakeStore()
	runner := newFakeRunner()

	b := makeBundle(t, bundle.PostApplyReload,
		setOp("LOOPBACK_INTERFACE", "Loopback0", nil),
		setOp("LOOPBACK_INTERFACE", "Loopback0|10.0.1.1/32", nil),
		setOp("VXLAN_TUNNEL", "vtep", map[string]string{"src_ip": "10.0.1.1"}),
		setOp("VXLAN_TUNNEL_MAP", "vtep|map_100_Vlan100", map[string]string{"vlan": "Vlan100", "vni": "100"}),
	)

	rep := New("leaf1", store, runner, fastOpts()).Apply(context.Background(), b)
	if rep.Status != StatusApplied {
		t.Fatalf("Status = %s, err = %v", rep.Status, rep.Err)
	}

	probe := state.Probe{
		Name: "vtep-source", Kind: state.ProbeConfigDB,
		Table: "VXLAN_TUNNEL", Key: "vtep", Field: "src_ip", Equals: "10.0.1.1",
		Timeout: 100 * time.Millisecond, Interval: time.Millisecond,
	}
	if err := probe.Validate(); err != nil {
		t.Fatal(err)
	}

	res := state.NewReader("leaf1", storeSource{store}).Run(context.Background(), &probe)
	if res.Outcome != state.Matched {
		t.Fatalf("probe outcome = %s, err = %v", res.Outcome, res.Err)
	}
}
