package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestProbeValidateDefaults(t *testing.T) {
	p := Probe{
		Name: "vtep", Kind: ProbeConfigDB,
		Table: "VXLAN_TUNNEL", Key: "vtep", Field: "src_ip", Equals: "10.0.1.1",
	}
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	if p.Timeout != 60*time.Second || p.Interval != 2*time.Second {
		t.Errorf("defaults not applied: timeout=%v interval=%v", p.Timeout, p.Interval)
	}
}

func TestProbeValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		p    Probe
		want string
	}{
		{"no name", Probe{Kind: ProbeConfigDB, Table: "T", Key: "k", Field: "f"}, "name"},
		{"config-db missing field", Probe{Name: "p", Kind: ProbeConfigDB, Table: "T", Key: "k"}, "field"},
		{"state-db missing table", Probe{Name: "p", Kind: ProbeStateDB, Key: "k", Field: "f"}, "table"},
		{"command-json missing expr", Probe{Name: "p", Kind: ProbeCommandJSON, Command: "c"}, "expr"},
		{"bad expr", Probe{Name: "p", Kind: ProbeCommandJSON, Command: "c", Expr: ".["}, "expr"},
		{"unknown kind", Probe{Name: "p", Kind: "snmp"}, "unknown kind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if err == nil {
				t.Fatal("Validate should fail")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadProbeSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.yaml")
	data := `
name: leaf1-verify
probes:
  - name: vtep-source
    kind: config-db
    table: VXLAN_TUNNEL
    key: vtep
    field: src_ip
    equals: 10.0.1.1
  - name: bgp-established
    kind: command-json
    command: vtysh -c 'show bgp summary json'
    expr: .ipv4Unicast.peers."10.1.12.2".state
    equals: Established
    timeout: 90s
    interval: 5s
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	ps, err := LoadProbeSet(path)
	if err != nil {
		t.Fatalf("LoadProbeSet: %v", err)
	}
	if ps.Name != "leaf1-verify" || len(ps.Probes) != 2 {
		t.Fatalf("set = %+v", ps)
	}
	if ps.Probes[0].Timeout != 60*time.Second {
		t.Errorf("default timeout not applied: %v", ps.Probes[0].Timeout)
	}
	if ps.Probes[1].Timeout != 90*time.Second || ps.Probes[1].Interval != 5*time.Second {
		t.Errorf("explicit timing lost: %+v", ps.Probes[1])
	}
	if ps.Probes[1].Query() == nil {
		t.Error("jq expression should be parsed by load")
	}
}

func TestLoadProbeSetRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.yaml")
	if err := os.WriteFile(path, []byte("name: empty\nprobes: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProbeSet(path); err == nil {
		t.Error("empty probe set should be rejected")
	}
}
