package vland

import "context"

// VlanAddResult distinguishes a freshly created VLAN child from one that
// was already present with matching (trunk, vid).
type VlanAddResult int

const (
	VlanCreated VlanAddResult = iota
	VlanExisted
)

// Driver is the OS interface driver: the set of primitives the topology
// manager composes to realize bridge and VLAN topology. Two implementations
// are provided: netlinkDriver (direct vishvananda/netlink calls) and
// scriptDriver (an external helper script, verb/argv protocol).
type Driver interface {
	IfUp(ctx context.Context, name string) error
	IfDown(ctx context.Context, name string) error

	// VlanAdd ensures an 802.1Q child of trunk exists for vid, named
	// childName. Names at or beyond IfNameSize are rejected by the
	// caller before this is invoked.
	VlanAdd(ctx context.Context, trunk string, vid int, childName string) (VlanAddResult, error)
	VlanRemove(ctx context.Context, childName string) error
	VlanSetNameType(ctx context.Context, mode VlanNamingMode) error

	BridgeAdd(ctx context.Context, name string) error
	BridgeDel(ctx context.Context, name string) error
	BridgeAddIf(ctx context.Context, br, port string) error
	BridgeDelIf(ctx context.Context, br, port string) error
	BridgeNumPorts(ctx context.Context, br string) (int, error)

	// SkipDelBrWhenPortsRemain reports whether the caller must consult
	// BridgeNumPorts before BridgeDel. The netlink driver does; the
	// script driver defers that judgement entirely to the script (see
	// scriptDriver.SkipDelBrWhenPortsRemain).
	SkipDelBrWhenPortsRemain() bool
}

// checkIfNameLength is the shared name-length guard. The drivers apply it
// before any syscall in IfUp, IfDown, VlanAdd and BridgeAdd; the removal,
// port and port-count operations do not check the name length.
func checkIfNameLength(name string) error {
	if len(name) >= IfNameSize {
		return ErrNameTooLong
	}
	return nil
}
