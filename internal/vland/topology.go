package vland

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dynvland/dynvland/internal/preauth"
	"github.com/dynvland/dynvland/internal/stationvif"
	"github.com/dynvland/dynvland/internal/wpaauth"
)

// Topology is the topology manager: it owns the shared-resource registry
// and the OS driver, and drives bridge/trunk-child/port topology into
// existence on NEWLINK and back out of existence on DELLINK.
//
// Ordering guarantees within a single event are enforced by straight-line
// sequencing, not locking: bridge exists before port enroll, port enroll
// before ifup, ifup before WPA group setup. Teardown undoes each of these
// steps, but not in strictly reverse order: the snoop is stopped and the
// group released before the station interface is brought down and
// removed, and the untagged bridge is released before the tagged-VID
// trunk children and their bridges.
type Topology struct {
	driver   Driver
	registry *Registry
	naming   NamingConfig
	bridge   string // default bridge, used when a binding has no VLAN constraint
	vif      stationvif.Manager
	group    wpaauth.GroupKeeper
	snoop    preauth.Snoop
	logger   *slog.Logger
}

// NewTopology constructs a topology manager for one BSS.
func NewTopology(driver Driver, naming NamingConfig, defaultBridge string, vif stationvif.Manager, group wpaauth.GroupKeeper, snoop preauth.Snoop, logger *slog.Logger) *Topology {
	return &Topology{
		driver:   driver,
		registry: NewRegistry(),
		naming:   naming,
		bridge:   defaultBridge,
		vif:      vif,
		group:    group,
		snoop:    snoop,
		logger:   logger.With("component", "vland-topology"),
	}
}

// Registry exposes the shared-resource registry for tests and debug
// introspection.
func (t *Topology) Registry() *Registry { return t.registry }

// OnLinkUp runs the NEWLINK sequence against binding b,
// which must already have ifname == the ifname that appeared. It is a
// no-op if b is already Configured (race suppression: NEWLINK for an
// already-configured binding is silently dropped).
func (t *Topology) OnLinkUp(ctx context.Context, b *Binding, wepKeyed bool) error {
	if b.Configured {
		t.logger.DebugContext(ctx, "newlink for already-configured binding dropped", slog.String("ifname", b.IfName))
		return nil
	}
	if wepKeyed {
		t.logger.ErrorContext(ctx, "refusing vlan interface on wep-keyed bss", slog.String("ifname", b.IfName))
		return ErrWEPRejected
	}

	b.Configured = true
	desc := b.Desc

	if !desc.NotEmpty {
		if t.bridge != "" {
			if err := t.driver.BridgeAddIf(ctx, t.bridge, b.IfName); err != nil {
				return fmt.Errorf("enroll %s into default bridge %s: %w", b.IfName, t.bridge, err)
			}
			b.Clean |= CleanWLANPort
			b.acquired = append(b.acquired, t.bridge)
		}
	} else {
		if ValidVID(desc.Untagged) {
			br, err := t.ensureBridge(ctx, desc.Untagged)
			if err != nil {
				return err
			}
			if t.naming.TaggedTrunk != "" {
				if err := t.spliceTrunkChild(ctx, t.naming.TaggedTrunk, desc.Untagged, br); err != nil {
					return err
				}
			}
			if err := t.driver.BridgeAddIf(ctx, br, b.IfName); err != nil {
				return fmt.Errorf("enroll %s into %s: %w", b.IfName, br, err)
			}
			b.Clean |= CleanWLANPort
			b.acquired = append(b.acquired, br)
		}

		for _, vid := range desc.DistinctTagged() {
			br, err := t.ensureBridge(ctx, vid)
			if err != nil {
				return err
			}
			// Additional tagged VIDs always splice a WithDevice-named
			// trunk child off the station's own interface, regardless of
			// the BSS's configured naming mode.
			child := VlanChildName(WithDevice, b.IfName, vid)
			if err := t.addTrunkChild(ctx, b.IfName, vid, child, br); err != nil {
				return err
			}
		}
	}

	if err := t.driver.IfUp(ctx, b.IfName); err != nil {
		return fmt.Errorf("ifup %s: %w", b.IfName, err)
	}

	h, err := t.snoop.Start(b.IfName)
	if err != nil {
		t.logger.WarnContext(ctx, "preauth snoop start failed", slog.String("ifname", b.IfName), slog.String("error", err.Error()))
	} else {
		b.PreAuth = h
	}

	if err := t.vifAddWithGroup(ctx, b, desc.Untagged); err != nil {
		return err
	}

	return nil
}

// vifAddWithGroup is the WPA group coupling step:
// after the per-station interface is materialized, ensure the WPA group
// for vid exists; on failure, unwind the group, the snoop, and the
// interface itself, in that order, leaving no partial state.
func (t *Topology) vifAddWithGroup(ctx context.Context, b *Binding, vid int) error {
	if err := t.vif.Add(b.IfName); err != nil {
		return fmt.Errorf("station vif add %s: %w", b.IfName, err)
	}
	if err := t.group.EnsureGroup(vid); err != nil {
		t.logger.ErrorContext(ctx, "wpa group setup failed, unwinding", slog.String("ifname", b.IfName), slog.Int("vid", vid))
		if relErr := t.group.ReleaseGroup(vid); relErr != nil {
			t.logger.WarnContext(ctx, "group release during unwind failed", slog.String("error", relErr.Error()))
		}
		if b.PreAuth != nil {
			_ = t.snoop.Stop(b.PreAuth)
			b.PreAuth = nil
		}
		if rmErr := t.vif.Remove(b.IfName); rmErr != nil {
			t.logger.WarnContext(ctx, "station vif remove during unwind failed", slog.String("error", rmErr.Error()))
		}
		return fmt.Errorf("wpa group ensure for vid %d: %w", vid, err)
	}
	return nil
}

// ensureBridge creates the bridge for vid if it does not already exist,
// registers the shared-resource entry, and brings it up. Mirrors
// §4.3 step 3b.
func (t *Topology) ensureBridge(ctx context.Context, vid int) (string, error) {
	br, err := t.naming.BridgeName(vid)
	if err != nil {
		return "", fmt.Errorf("br_name %d: %w", vid, err)
	}

	created := t.registry.Usage(br) == 0
	if err := t.driver.BridgeAdd(ctx, br); err != nil {
		return "", fmt.Errorf("br_addbr %s: %w", br, err)
	}
	var clean CleanFlags
	if created {
		clean = CleanBR
	}
	t.registry.Get(br, clean)
	if err := t.driver.IfUp(ctx, br); err != nil {
		return "", fmt.Errorf("ifup %s: %w", br, err)
	}
	return br, nil
}

// spliceTrunkChild ensures the tagged trunk child for (trunk, vid) exists
// and is enrolled into br.
func (t *Topology) spliceTrunkChild(ctx context.Context, trunk string, vid int, br string) error {
	if err := t.driver.IfUp(ctx, trunk); err != nil {
		return fmt.Errorf("ifup trunk %s: %w", trunk, err)
	}
	child := VlanChildName(t.naming.Mode, trunk, vid)
	return t.addTrunkChild(ctx, trunk, vid, child, br)
}

// addTrunkChild creates childName as a VLAN child of trunk for vid (if not
// already present) and enrolls it into br, registering the matching
// cleanup obligations on each resource it actually created or enrolled.
func (t *Topology) addTrunkChild(ctx context.Context, trunk string, vid int, childName, br string) error {
	if err := checkIfNameLength(childName); err != nil {
		return err
	}
	result, err := t.driver.VlanAdd(ctx, trunk, vid, childName)
	if err != nil {
		return fmt.Errorf("vlan_add %s: %w", childName, err)
	}
	if result == VlanCreated {
		t.registry.Get(childName, CleanVLAN)
	} else {
		t.registry.Get(childName, 0)
	}

	portCreated := t.registry.Usage(childName+"@"+br) == 0
	if err := t.driver.BridgeAddIf(ctx, br, childName); err != nil {
		return fmt.Errorf("br_addif %s %s: %w", br, childName, err)
	}
	var portClean CleanFlags
	if portCreated {
		portClean = CleanVLANPort
	}
	t.registry.Get(childName+"@"+br, portClean)

	if err := t.driver.IfUp(ctx, childName); err != nil {
		return fmt.Errorf("ifup %s: %w", childName, err)
	}
	return nil
}

// OnLinkDown runs the mirror teardown sequence against
// binding b. Per the permitted no-op (skip
// counting), a binding that was never Configured still has its per-station
// interface removed but none of the registry Put calls are issued, since
// none of the corresponding Get calls ever ran.
func (t *Topology) OnLinkDown(ctx context.Context, b *Binding) {
	if !b.Configured {
		t.logger.DebugContext(ctx, "dellink for never-configured binding, skipping registry teardown", slog.String("ifname", b.IfName))
		t.removeStationVIF(ctx, b)
		return
	}

	if b.PreAuth != nil {
		if err := t.snoop.Stop(b.PreAuth); err != nil {
			t.logger.WarnContext(ctx, "preauth snoop stop failed", slog.String("error", err.Error()))
		}
		b.PreAuth = nil
	}

	if err := t.group.ReleaseGroup(b.Desc.Untagged); err != nil {
		t.logger.WarnContext(ctx, "wpa group release failed", slog.String("error", err.Error()))
	}

	if err := t.driver.IfDown(ctx, b.IfName); err != nil {
		t.logger.WarnContext(ctx, "ifdown failed during teardown", slog.String("ifname", b.IfName), slog.String("error", err.Error()))
	}

	t.removeStationVIF(ctx, b)

	if b.Clean.Has(CleanWLANPort) {
		for i := len(b.acquired) - 1; i >= 0; i-- {
			br := b.acquired[i]
			if err := t.driver.BridgeDelIf(ctx, br, b.IfName); err != nil {
				t.logger.WarnContext(ctx, "br_delif failed", slog.String("bridge", br), slog.String("port", b.IfName), slog.String("error", err.Error()))
			}
			if b.Desc.NotEmpty && t.naming.TaggedTrunk != "" {
				// The untagged bridge also holds the trunk child that
				// spliceTrunkChild enrolled; release it before the bridge.
				t.releaseTrunkChild(ctx, VlanChildName(t.naming.Mode, t.naming.TaggedTrunk, b.Desc.Untagged), br)
			}
			t.releaseBridge(ctx, br)
		}
		b.acquired = nil
	}

	for _, vid := range b.Desc.DistinctTagged() {
		child := VlanChildName(WithDevice, b.IfName, vid)
		br, err := t.naming.BridgeName(vid)
		if err != nil {
			t.logger.WarnContext(ctx, "br_name failed during teardown", slog.Int("vid", vid), slog.String("error", err.Error()))
			continue
		}
		t.releaseTrunkChild(ctx, child, br)
		t.releaseBridge(ctx, br)
	}
}

func (t *Topology) removeStationVIF(ctx context.Context, b *Binding) {
	if err := t.vif.Remove(b.IfName); err != nil {
		t.logger.ErrorContext(ctx, "station vif remove failed", slog.String("ifname", b.IfName), slog.String("error", err.Error()))
	}
}

// releaseTrunkChild mirrors addTrunkChild's two Get calls with two Puts:
// first the port-in-bridge obligation, then the child-interface obligation.
func (t *Topology) releaseTrunkChild(ctx context.Context, child, br string) {
	if clean, last := t.registry.Put(child + "@" + br); last && clean.Has(CleanVLANPort) {
		if err := t.driver.BridgeDelIf(ctx, br, child); err != nil {
			t.logger.WarnContext(ctx, "br_delif failed", slog.String("error", err.Error()))
		}
	}
	if clean, last := t.registry.Put(child); last && clean.Has(CleanVLAN) {
		if err := t.driver.IfDown(ctx, child); err != nil {
			t.logger.WarnContext(ctx, "ifdown failed", slog.String("error", err.Error()))
		}
		if err := t.driver.VlanRemove(ctx, child); err != nil {
			t.logger.WarnContext(ctx, "vlan_rem failed", slog.String("error", err.Error()))
		}
	}
}

// releaseBridge mirrors ensureBridge with a Put; BR cleanup is gated on
// BridgeNumPorts when the active driver requires it (the netlink path
// does, the script path defers entirely to the script).
func (t *Topology) releaseBridge(ctx context.Context, br string) {
	clean, last := t.registry.Put(br)
	if !last || !clean.Has(CleanBR) {
		return
	}
	if t.driver.SkipDelBrWhenPortsRemain() {
		n, err := t.driver.BridgeNumPorts(ctx, br)
		if err != nil {
			t.logger.WarnContext(ctx, "br_getnumports failed", slog.String("bridge", br), slog.String("error", err.Error()))
		} else if n != 0 {
			t.logger.DebugContext(ctx, "bridge still has ports outside the registry, skipping delete", slog.String("bridge", br), slog.Int("ports", n))
			return
		}
	}
	if err := t.driver.IfDown(ctx, br); err != nil {
		t.logger.WarnContext(ctx, "ifdown bridge failed", slog.String("bridge", br), slog.String("error", err.Error()))
	}
	if err := t.driver.BridgeDel(ctx, br); err != nil {
		t.logger.WarnContext(ctx, "br_delbr failed", slog.String("bridge", br), slog.String("error", err.Error()))
	}
}
