package configdb

import "testing"

func TestTableParsers(t *testing.T) {
	db := newEmptyConfigDB()

	tableParsers["DEVICE_METADATA"](db, "localhost", map[string]string{
		"hostname": "leaf1", "bgp_asn": "101",
	})
	tableParsers["BGP_NEIGHBOR"](db, "default|10.1.12.2", map[string]string{
		"asn": "102", "name": "leaf2", "admin_status": "true",
	})
	tableParsers["VLAN"](db, "Vlan100", map[string]string{
		"vlanid": "100", "description": "tenant-a",
	})
	tableParsers["VXLAN_TUNNEL"](db, "vtep", map[string]string{"src_ip": "10.0.1.1"})
	tableParsers["VXLAN_TUNNEL_MAP"](db, "vtep|map_100_Vlan100", map[string]string{
		"vlan": "Vlan100", "vni": "100",
	})

	if db.DeviceMetadata["localhost"]["hostname"] != "leaf1" {
		t.Error("DEVICE_METADATA not parsed")
	}
	n := db.BGPNeighbor["default|10.1.12.2"]
	if n.ASN != "102" || n.Name != "leaf2" {
		t.Errorf("BGP_NEIGHBOR = %+v", n)
	}
	if db.VLAN["Vlan100"].VLANID != "100" {
		t.Error("VLAN not parsed")
	}
	if db.VXLANTunnelMap["vtep|map_100_Vlan100"].VNI != "100" {
		t.Error("VXLAN_TUNNEL_MAP not parsed")
	}
}

func TestConfigDBHelpers(t *testing.T) {
	var nilDB *ConfigDB
	if nilDB.HasVLAN("Vlan100") || nilDB.HasVTEP() || nilDB.BGPConfigured() {
		t.Error("nil ConfigDB should report nothing configured")
	}

	db := newEmptyConfigDB()
	if db.HasVLAN("Vlan100") {
		t.Error("empty ConfigDB should have no VLANs")
	}

	db.VLAN["Vlan100"] = VLANEntry{VLANID: "100"}
	db.VXLANTunnel["vtep"] = VXLANTunnelEntry{SrcIP: "10.0.1.1"}
	if !db.HasVLAN("Vlan100") || db.HasVLAN("Vlan200") {
		t.Error("HasVLAN wrong")
	}
	if !db.HasVTEP() {
		t.Error("HasVTEP wrong")
	}

	if db.BGPConfigured() {
		t.Error("BGP not configured yet")
	}
	db.DeviceMetadata["localhost"] = map[string]string{"bgp_asn": "101"}
	if !db.BGPConfigured() {
		t.Error("bgp_asn in DEVICE_METADATA should count as configured")
	}

	db2 := newEmptyConfigDB()
	db2.BGPGlobals["default"] = BGPGlobalsEntry{LocalASN: "101"}
	if !db2.BGPConfigured() {
		t.Error("BGP_GLOBALS entry should count as configured")
	}
}
