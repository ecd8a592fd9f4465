package vland

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vishvananda/netlink"
)

// netlinkDriver implements Driver with direct github.com/vishvananda/netlink
// calls, the Go-native replacement for the SIOCSIFVLAN / bridge ioctl path.
// "Already exists" detection for VlanAdd is done by resolving the candidate
// child by name and comparing ParentIndex/VlanId rather than issuing the
// two-ioctl GET_VLAN_VID_CMD / GET_VLAN_REALDEV_NAME_CMD probe the kernel
// ioctl ABI requires: the library already exposes those fields on the link
// it returns.
type netlinkDriver struct {
	logger *slog.Logger
}

// NewNetlinkDriver returns a Driver backed by rtnetlink.
func NewNetlinkDriver(logger *slog.Logger) Driver {
	return &netlinkDriver{logger: logger.With("component", "vland-driver-netlink")}
}

func (d *netlinkDriver) IfUp(ctx context.Context, name string) error {
	if err := checkIfNameLength(name); err != nil {
		return err
	}
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("ifup %s: resolve: %w", name, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("ifup %s: %w", name, err)
	}
	return nil
}

func (d *netlinkDriver) IfDown(ctx context.Context, name string) error {
	if err := checkIfNameLength(name); err != nil {
		return err
	}
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("ifdown %s: resolve: %w", name, err)
	}
	if err := netlink.LinkSetDown(link); err != nil {
		return fmt.Errorf("ifdown %s: %w", name, err)
	}
	return nil
}

func (d *netlinkDriver) VlanAdd(ctx context.Context, trunk string, vid int, childName string) (VlanAddResult, error) {
	if err := checkIfNameLength(childName); err != nil {
		return 0, err
	}
	if !ValidVID(vid) {
		return 0, ErrBadVID
	}

	trunkLink, err := netlink.LinkByName(trunk)
	if err != nil {
		return 0, fmt.Errorf("vlan_add %s: resolve trunk %s: %w", childName, trunk, err)
	}

	if existing, err := netlink.LinkByName(childName); err == nil {
		if vlan, ok := existing.(*netlink.Vlan); ok &&
			vlan.ParentIndex == trunkLink.Attrs().Index && vlan.VlanId == vid {
			return VlanExisted, nil
		}
		return 0, fmt.Errorf("vlan_add %s: name in use by a non-matching interface", childName)
	}

	link := &netlink.Vlan{
		LinkAttrs: netlink.LinkAttrs{
			Name:        childName,
			ParentIndex: trunkLink.Attrs().Index,
		},
		VlanId: vid,
	}
	if err := netlink.LinkAdd(link); err != nil {
		return 0, fmt.Errorf("vlan_add %s: %w", childName, err)
	}
	return VlanCreated, nil
}

func (d *netlinkDriver) VlanRemove(ctx context.Context, childName string) error {
	link, err := netlink.LinkByName(childName)
	if err != nil {
		return nil // already gone, deletion is idempotent
	}
	if err := netlink.LinkDel(link); err != nil {
		return fmt.Errorf("vlan_rem %s: %w", childName, err)
	}
	return nil
}

// VlanSetNameType is not supported under the netlink driver: modern VLAN
// link creation always takes an explicit name, so there is no kernel
// global naming policy to set. The naming MODE still governs name
// construction in naming.go; this call just reports that it has nothing to
// do against the kernel.
func (d *netlinkDriver) VlanSetNameType(ctx context.Context, mode VlanNamingMode) error {
	d.logger.DebugContext(ctx, "vlan_set_name_type is not supported by the netlink driver",
		slog.Int("mode", int(mode)))
	return ErrNotSupported
}

func (d *netlinkDriver) BridgeAdd(ctx context.Context, name string) error {
	if err := checkIfNameLength(name); err != nil {
		return err
	}
	if _, err := netlink.LinkByName(name); err == nil {
		return nil // idempotent: bridge already exists
	}
	br := &netlink.Bridge{LinkAttrs: netlink.LinkAttrs{Name: name}}
	if err := netlink.LinkAdd(br); err != nil {
		return fmt.Errorf("br_addbr %s: %w", name, err)
	}
	return nil
}

func (d *netlinkDriver) BridgeDel(ctx context.Context, name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil // already gone, deletion is idempotent
	}
	if err := netlink.LinkDel(link); err != nil {
		return fmt.Errorf("br_delbr %s: %w", name, err)
	}
	return nil
}

func (d *netlinkDriver) BridgeAddIf(ctx context.Context, br, port string) error {
	brLink, err := netlink.LinkByName(br)
	if err != nil {
		return fmt.Errorf("br_addif %s %s: resolve bridge: %w", br, port, err)
	}
	portLink, err := netlink.LinkByName(port)
	if err != nil {
		return fmt.Errorf("br_addif %s %s: resolve port: %w", br, port, err)
	}
	if err := netlink.LinkSetMaster(portLink, brLink.(*netlink.Bridge)); err != nil {
		return fmt.Errorf("br_addif %s %s: %w", br, port, err)
	}
	return nil
}

func (d *netlinkDriver) BridgeDelIf(ctx context.Context, br, port string) error {
	portLink, err := netlink.LinkByName(port)
	if err != nil {
		return nil // already gone, removal is idempotent
	}
	if err := netlink.LinkSetNoMaster(portLink); err != nil {
		return fmt.Errorf("br_delif %s %s: %w", br, port, err)
	}
	return nil
}

func (d *netlinkDriver) BridgeNumPorts(ctx context.Context, br string) (int, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return 0, fmt.Errorf("br_getnumports %s: list links: %w", br, err)
	}
	brLink, err := netlink.LinkByName(br)
	if err != nil {
		return 0, nil
	}
	n := 0
	for _, l := range links {
		if l.Attrs().MasterIndex == brLink.Attrs().Index {
			n++
		}
	}
	return n, nil
}

func (d *netlinkDriver) SkipDelBrWhenPortsRemain() bool { return true }
