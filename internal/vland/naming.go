package vland

import "fmt"

// VlanNamingMode selects how trunk-child and bridge names are derived, the
// Go-native stand-in for the kernel's global VLAN naming policy.
type VlanNamingMode int

const (
	// WithDevice names trunk children "<trunk>.<vid>", mirroring the
	// kernel's VLAN_NAME_TYPE_RAW_PLUS_VID_NO_PAD.
	WithDevice VlanNamingMode = iota
	// WithoutDevice names trunk children "vlan<vid>", mirroring
	// VLAN_NAME_TYPE_PLUS_VID_NO_PAD.
	WithoutDevice
)

// NamingConfig carries the fields BridgeName and VlanChildName are pure
// functions of.
type NamingConfig struct {
	Mode           VlanNamingMode
	TaggedTrunk    string // empty if no trunk interface is configured
	BridgePrefix   string // empty selects the "br<trunk>.<vid>" or "brvlan<vid>" fallback
	ScriptBrName   func(vid int) (string, error) // set when a helper script drives naming
}

// BridgeName derives the bridge name for vid: the script's
// br_name verb wins when configured, then "<prefix><vid>", then
// "br<trunk>.<vid>" when a trunk is set, then the "brvlan<vid>" fallback.
func (c NamingConfig) BridgeName(vid int) (string, error) {
	if c.ScriptBrName != nil {
		return c.ScriptBrName(vid)
	}
	if c.BridgePrefix != "" {
		return fmt.Sprintf("%s%d", c.BridgePrefix, vid), nil
	}
	if c.TaggedTrunk != "" {
		return fmt.Sprintf("br%s.%d", c.TaggedTrunk, vid), nil
	}
	return fmt.Sprintf("brvlan%d", vid), nil
}

// VlanChildName derives the trunk-child interface name for vid under the
// configured naming mode. base is the trunk interface name under
// WithDevice mode; callers pass either the configured trunk or (for
// per-binding tagged children without a shared trunk) the station
// interface name itself.
func VlanChildName(mode VlanNamingMode, base string, vid int) string {
	if mode == WithDevice {
		return fmt.Sprintf("%s.%d", base, vid)
	}
	return fmt.Sprintf("vlan%d", vid)
}
