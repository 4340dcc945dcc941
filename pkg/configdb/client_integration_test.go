//go:build integration

package configdb

import (
	"testing"

	"github.com/fablab-network/fabpush/internal/testutil"
)

func setup(t *testing.T) *Client {
	t.Helper()
	testutil.SkipIfNoRedis(t)
	testutil.FlushDB(t, 4)

	c := NewClient(testutil.RedisAddr())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSetAndGet(t *testing.T) {
	c := setup(t)

	if err := c.Set("VLAN", "Vlan100", map[string]string{"vlanid": "100", "description": "tenant-a"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	vals, err := c.Get("VLAN", "Vlan100")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if vals["vlanid"] != "100" || vals["description"] != "tenant-a" {
		t.Errorf("entry = %v", vals)
	}
}

func TestSetEmptyFieldsWritesNullSentinel(t *testing.T) {
	c := setup(t)

	if err := c.Set("LOOPBACK_INTERFACE", "Loopback0", nil); err != nil {
		t.Fatalf("Set: %v", err)
	}

	exists, err := c.Exists("LOOPBACK_INTERFACE", "Loopback0")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("field-less entry should still create the key")
	}

	vals := testutil.ReadEntry(t, 4, "LOOPBACK_INTERFACE", "Loopback0")
	if vals["NULL"] != "NULL" {
		t.Errorf("entry = %v, want NULL sentinel", vals)
	}
}

func TestDelete(t *testing.T) {
	c := setup(t)

	if err := c.Set("VLAN", "Vlan100", map[string]string{"vlanid": "100"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete("VLAN", "Vlan100"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	exists, err := c.Exists("VLAN", "Vlan100")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("entry should be gone")
	}

	// Deleting an absent entry is not an error.
	if err := c.Delete("VLAN", "Vlan100"); err != nil {
		t.Errorf("Delete of absent entry: %v", err)
	}
}

func TestTableKeys(t *testing.T) {
	c := setup(t)

	for _, key := range []string{"Vlan100", "Vlan200", "Vlan300"} {
		if err := c.Set("VLAN", key, map[string]string{"vlanid": key[4:]}); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Set("VXLAN_TUNNEL", "vtep", map[string]string{"src_ip": "10.0.1.1"}); err != nil {
		t.Fatal(err)
	}

	keys, err := c.TableKeys("VLAN")
	if err != nil {
		t.Fatalf("TableKeys: %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("keys = %v, want 3 VLAN entries", keys)
	}
}

func TestPipelineSet(t *testing.T) {
	c := setup(t)

	testutil.WriteEntry(t, 4, "VLAN", "Vlan999", map[string]string{"vlanid": "999"})

	changes := []TableChange{
		{Table: "VLAN", Key: "Vlan100", Fields: map[string]string{"vlanid": "100"}},
		{Table: "LOOPBACK_INTERFACE", Key: "Loopback0", Fields: map[string]string{}},
		{Table: "VLAN", Key: "Vlan999", Fields: nil}, // delete
	}
	if err := c.PipelineSet(changes); err != nil {
		t.Fatalf("PipelineSet: %v", err)
	}

	if !testutil.EntryExists(t, 4, "VLAN", "Vlan100") {
		t.Error("Vlan100 not written")
	}
	if vals := testutil.ReadEntry(t, 4, "LOOPBACK_INTERFACE", "Loopback0"); vals["NULL"] != "NULL" {
		t.Errorf("Loopback0 = %v, want NULL sentinel", vals)
	}
	if testutil.EntryExists(t, 4, "VLAN", "Vlan999") {
		t.Error("Vlan999 should be deleted")
	}
}

func TestGetAll(t *testing.T) {
	c := setup(t)

	seed := []TableChange{
		{Table: "DEVICE_METADATA", Key: "localhost", Fields: map[string]string{"hostname": "leaf1", "bgp_asn": "101"}},
		{Table: "VLAN", Key: "Vlan100", Fields: map[string]string{"vlanid": "100"}},
		{Table: "VXLAN_TUNNEL", Key: "vtep", Fields: map[string]string{"src_ip": "10.0.1.1"}},
		{Table: "VXLAN_TUNNEL_MAP", Key: "vtep|map_100_Vlan100", Fields: map[string]string{"vlan": "Vlan100", "vni": "100"}},
		{Table: "UNMODELED_TABLE", Key: "x", Fields: map[string]string{"a": "b"}},
	}
	if err := c.PipelineSet(seed); err != nil {
		t.Fatal(err)
	}

	db, err := c.GetAll()
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if !db.HasVLAN("Vlan100") || !db.HasVTEP() || !db.BGPConfigured() {
		t.Errorf("db = %+v", db)
	}
	if db.VXLANTunnelMap["vtep|map_100_Vlan100"].VNI != "100" {
		t.Error("tunnel map not read back")
	}
}

func TestStateClient(t *testing.T) {
	testutil.SkipIfNoRedis(t)
	testutil.FlushDB(t, 6)

	sc := NewStateClient(testutil.RedisAddr())
	defer sc.Close()

	if err := sc.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	entry, err := sc.GetEntry("VLAN_TABLE", "Vlan100")
	if err != nil {
		t.Fatal(err)
	}
	if entry != nil {
		t.Errorf("absent entry should be nil, got %v", entry)
	}

	testutil.WriteEntry(t, 6, "VLAN_TABLE", "Vlan100", map[string]string{"oper_status": "up"})

	entry, err = sc.GetEntry("VLAN_TABLE", "Vlan100")
	if err != nil {
		t.Fatal(err)
	}
	if entry["oper_status"] != "up" {
		t.Errorf("entry = %v", entry)
	}
}
