package configdb

// ConfigDB mirrors the subset of SONiC's config_db.json the driver works
// with. Keys of composite tables use the Redis "parent|child" convention
// (e.g. "Vlan100|Ethernet4").
type ConfigDB struct {
	DeviceMetadata    map[string]map[string]string `json:"DEVICE_METADATA,omitempty"`
	BGPGlobals        map[string]BGPGlobalsEntry   `json:"BGP_GLOBALS,omitempty"`
	BGPNeighbor       map[string]BGPNeighborEntry  `json:"BGP_NEIGHBOR,omitempty"`
	LoopbackInterface map[string]map[string]string `json:"LOOPBACK_INTERFACE,omitempty"`
	Interface         map[string]InterfaceEntry    `json:"INTERFACE,omitempty"`
	VLAN              map[string]VLANEntry         `json:"VLAN,omitempty"`
	VLANMember        map[string]VLANMemberEntry   `json:"VLAN_MEMBER,omitempty"`
	VXLANTunnel       map[string]VXLANTunnelEntry  `json:"VXLAN_TUNNEL,omitempty"`
	VXLANTunnelMap    map[string]VXLANMapEntry     `json:"VXLAN_TUNNEL_MAP,omitempty"`
	VXLANEVPNNVO      map[string]EVPNNVOEntry      `json:"VXLAN_EVPN_NVO,omitempty"`
}

// BGPGlobalsEntry represents global BGP settings for a VRF
type BGPGlobalsEntry struct {
	RouterID string `json:"router_id,omitempty"`
	LocalASN string `json:"local_asn,omitempty"`
}

// BGPNeighborEntry represents a BGP neighbor
type BGPNeighborEntry struct {
	LocalAddr   string `json:"local_addr,omitempty"`
	Name        string `json:"name,omitempty"`
	ASN         string `json:"asn,omitempty"`
	AdminStatus string `json:"admin_status,omitempty"`
}

// InterfaceEntry represents interface configuration
type InterfaceEntry struct {
	VRFName string `json:"vrf_name,omitempty"`
}

// VLANEntry represents a VLAN configuration
type VLANEntry struct {
	VLANID      string `json:"vlanid"`
	Description string `json:"description,omitempty"`
	AdminStatus string `json:"admin_status,omitempty"`
}

// VLANMemberEntry represents VLAN membership
type VLANMemberEntry struct {
	TaggingMode string `json:"tagging_mode"` // tagged, untagged
}

// VXLANTunnelEntry represents VTEP configuration
type VXLANTunnelEntry struct {
	SrcIP string `json:"src_ip"`
}

// VXLANMapEntry represents VNI to VLAN mapping
type VXLANMapEntry struct {
	VLAN string `json:"vlan,omitempty"`
	VNI  string `json:"vni"`
}

// EVPNNVOEntry represents EVPN NVO configuration
type EVPNNVOEntry struct {
	SourceVTEP string `json:"source_vtep"`
}

func newEmptyConfigDB() *ConfigDB {
	return &ConfigDB{
		DeviceMetadata:    make(map[string]map[string]string),
		BGPGlobals:        make(map[string]BGPGlobalsEntry),
		BGPNeighbor:       make(map[string]BGPNeighborEntry),
		LoopbackInterface: make(map[string]map[string]string),
		Interface:         make(map[string]InterfaceEntry),
		VLAN:              make(map[string]VLANEntry),
		VLANMember:        make(map[string]VLANMemberEntry),
		VXLANTunnel:       make(map[string]VXLANTunnelEntry),
		VXLANTunnelMap:    make(map[string]VXLANMapEntry),
		VXLANEVPNNVO:      make(map[string]EVPNNVOEntry),
	}
}

// HasVLAN reports whether the given VLAN name exists in the VLAN table.
func (db *ConfigDB) HasVLAN(name string) bool {
	if db == nil {
		return false
	}
	_, ok := db.VLAN[name]
	return ok
}

// HasVTEP reports whether any VXLAN tunnel (VTEP) is configured.
func (db *ConfigDB) HasVTEP() bool {
	if db == nil {
		return false
	}
	return len(db.VXLANTunnel) > 0
}

// BGPConfigured reports whether BGP is configured, checking both the
// BGP_GLOBALS table and DEVICE_METADATA bgp_asn.
func (db *ConfigDB) BGPConfigured() bool {
	if db == nil {
		return false
	}
	if len(db.BGPGlobals) > 0 {
		return true
	}
	if meta, ok := db.DeviceMetadata["localhost"]; ok {
		if asn, ok := meta["bgp_asn"]; ok && asn != "" {
			return true
		}
	}
	return false
}

// tableParsers maps CONFIG_DB table names to entry parsers used by GetAll.
var tableParsers = map[string]func(db *ConfigDB, key string, vals map[string]string){
	"DEVICE_METADATA": func(db *ConfigDB, key string, vals map[string]string) {
		db.DeviceMetadata[key] = vals
	},
	"BGP_GLOBALS": func(db *ConfigDB, key string, vals map[string]string) {
		db.BGPGlobals[key] = BGPGlobalsEntry{
			RouterID: vals["router_id"],
			LocalASN: vals["local_asn"],
		}
	},
	"BGP_NEIGHBOR": func(db *ConfigDB, key string, vals map[string]string) {
		db.BGPNeighbor[key] = BGPNeighborEntry{
			LocalAddr:   vals["local_addr"],
			Name:        vals["name"],
			ASN:         vals["asn"],
			AdminStatus: vals["admin_status"],
		}
	},
	"LOOPBACK_INTERFACE": func(db *ConfigDB, key string, vals map[string]string) {
		db.LoopbackInterface[key] = vals
	},
	"INTERFACE": func(db *ConfigDB, key string, vals map[string]string) {
		db.Interface[key] = InterfaceEntry{VRFName: vals["vrf_name"]}
	},
	"VLAN": func(db *ConfigDB, key string, vals map[string]string) {
		db.VLAN[key] = VLANEntry{
			VLANID:      vals["vlanid"],
			Description: vals["description"],
			AdminStatus: vals["admin_status"],
		}
	},
	"VLAN_MEMBER": func(db *ConfigDB, key string, vals map[string]string) {
		db.VLANMember[key] = VLANMemberEntry{TaggingMode: vals["tagging_mode"]}
	},
	"VXLAN_TUNNEL": func(db *ConfigDB, key string, vals map[string]string) {
		db.VXLANTunnel[key] = VXLANTunnelEntry{SrcIP: vals["src_ip"]}
	},
	"VXLAN_TUNNEL_MAP": func(db *ConfigDB, key string, vals map[string]string) {
		db.VXLANTunnelMap[key] = VXLANMapEntry{
			VLAN: vals["vlan"],
			VNI:  vals["vni"],
		}
	},
	"VXLAN_EVPN_NVO": func(db *ConfigDB, key string, vals map[string]string) {
		db.VXLANEVPNNVO[key] = EVPNNVOEntry{SourceVTEP: vals["source_vtep"]}
	},
}
