package vland

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dynvland/dynvland/internal/preauth"
	"github.com/dynvland/dynvland/internal/stationvif"
	"github.com/dynvland/dynvland/internal/wpaauth"
)

// DynamicVlanMode mirrors the three-valued configuration knob governing
// whether stations may be placed on per-station dynamic VLANs.
type DynamicVlanMode int

const (
	DynamicVlanDisabled DynamicVlanMode = iota
	DynamicVlanOptional
	DynamicVlanRequired
)

// BSS is the dynamic-VLAN bookkeeping aggregate for one BSS: its binding
// list, the topology manager driving that list's bridge/trunk-child/port
// state, and the watcher that feeds it kernel link events.
type BSS struct {
	Iface       string
	WEPKeyed    bool
	DynamicVlan DynamicVlanMode
	PerStaVIF   bool

	topology *Topology
	watcher  *Watcher
	logger   *slog.Logger

	bindings []*Binding
}

// NewBSS constructs a BSS aggregate. bindings is the concrete binding list
// read from configuration; it may be empty.
func NewBSS(iface string, wepKeyed bool, dynMode DynamicVlanMode, perStaVIF bool, driver Driver, naming NamingConfig, defaultBridge string, vif stationvif.Manager, group wpaauth.GroupKeeper, snoop preauth.Snoop, bindings []*Binding, logger *slog.Logger) *BSS {
	logger = logger.With("component", "vland-bss", slog.String("iface", iface))
	return &BSS{
		Iface:       iface,
		WEPKeyed:    wepKeyed,
		DynamicVlan: dynMode,
		PerStaVIF:   perStaVIF,
		topology:    NewTopology(driver, naming, defaultBridge, vif, group, snoop, logger),
		bindings:    bindings,
		logger:      logger,
	}
}

// Topology exposes the underlying topology manager for tests.
func (s *BSS) Topology() *Topology { return s.topology }

// Bindings returns the live binding list, for tests and introspection.
func (s *BSS) Bindings() []*Binding { return s.bindings }

// AttachWatcher wires a netlink link watcher to this BSS; Init and Deinit
// start/stop it. A BSS may also be driven purely by synthetic events (as
// in tests) by never calling AttachWatcher.
func (s *BSS) AttachWatcher(w *Watcher) { s.watcher = w }

// Init implements the init() lifecycle hook: if dynamic VLANs or
// per-station VIFs are enabled but no concrete VLAN binding was
// configured, synthesize a single wildcard binding. Then, for every
// already-concrete binding, add its per-station interface (tolerant of it
// already existing) and drive NEWLINK inline, whether or not a watcher is
// attached, so the authenticator's group-key setup does not wait on the
// kernel's echo. Finally, start the watcher if one is attached.
func (s *BSS) Init(ctx context.Context) error {
	if len(s.bindings) == 0 && (s.DynamicVlan != DynamicVlanDisabled || s.PerStaVIF) {
		wildcard := &Binding{IfName: s.Iface + ".#", VlanID: VlanIDWildcard}
		s.bindings = append(s.bindings, wildcard)
		s.logger.InfoContext(ctx, "synthesized wildcard binding", slog.String("ifname", wildcard.IfName))
	}

	for _, b := range s.bindings {
		if b.IsWildcard() {
			continue
		}
		if err := s.addBinding(ctx, b, true); err != nil {
			s.logger.ErrorContext(ctx, "init: add_binding failed", slog.String("ifname", b.IfName), slog.String("error", err.Error()))
			return err
		}
	}

	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
	}
	return nil
}

// addBinding materializes b's per-station interface via the radio driver
// seam (out of scope here) and drives the NEWLINK sequence inline rather
// than waiting for the kernel's echo to arrive through the watcher,
// because the authenticator needs the group ready to key the first frame.
// When the kernel's own NEWLINK later arrives for the same ifname it finds
// the binding already Configured and is dropped as a no-op. existsOK
// tolerates the interface already being present, the case for bindings
// surviving a daemon restart.
func (s *BSS) addBinding(ctx context.Context, b *Binding, existsOK bool) error {
	if s.WEPKeyed {
		return ErrWEPRejected
	}
	if err := checkIfNameLength(b.IfName); err != nil {
		return err
	}
	if err := s.topology.OnLinkUp(ctx, b, s.WEPKeyed); err != nil && !existsOK {
		return err
	}
	return nil
}

// AddDynamic implements add_dynamic(vid, desc): only valid against a
// wildcard template. It splits the template at '#', allocates a concrete
// binding, links it at the head of the binding list, and materializes its
// per-station interface. On failure the binding is unlinked again.
func (s *BSS) AddDynamic(ctx context.Context, vid int, desc VlanDescription) (*Binding, error) {
	if !ValidVID(vid) {
		return nil, ErrBadVID
	}
	template := s.findWildcard()
	if template == nil {
		return nil, ErrNotWildcard
	}

	prefix, suffix, err := SplitWildcard(template.IfName)
	if err != nil {
		return nil, err
	}
	ifname := fmt.Sprintf("%s%d%s", prefix, vid, suffix)

	b := &Binding{IfName: ifname, VlanID: vid, Desc: desc, DynamicVlan: 1}
	s.bindings = append([]*Binding{b}, s.bindings...)

	if err := s.addBinding(ctx, b, false); err != nil {
		s.unlink(b)
		return nil, fmt.Errorf("add_dynamic vid %d: %w", vid, err)
	}
	return b, nil
}

// RemoveDynamic implements remove_dynamic(vid): locates the binding with
// the matching VID and a positive dynamic use count, decrements it, and
// tears the binding down once it reaches zero.
func (s *BSS) RemoveDynamic(ctx context.Context, vid int) error {
	for _, b := range s.bindings {
		if b.VlanID != vid || b.DynamicVlan <= 0 {
			continue
		}
		b.DynamicVlan--
		if b.DynamicVlan > 0 {
			return nil
		}
		s.topology.OnLinkDown(ctx, b)
		s.unlink(b)
		return nil
	}
	return ErrNoSuchBinding
}

// Deinit implements deinit(): tears every binding down in list order, then
// stops the watcher.
func (s *BSS) Deinit(ctx context.Context) {
	for _, b := range s.bindings {
		if b.IsWildcard() {
			continue
		}
		s.topology.OnLinkDown(ctx, b)
	}
	s.bindings = nil

	if s.watcher != nil {
		s.watcher.Stop()
	}
}

func (s *BSS) findWildcard() *Binding {
	for _, b := range s.bindings {
		if b.IsWildcard() {
			return b
		}
	}
	return nil
}

func (s *BSS) unlink(target *Binding) {
	out := s.bindings[:0]
	for _, b := range s.bindings {
		if b != target {
			out = append(out, b)
		}
	}
	s.bindings = out
}

// OnNewLink is called by the watcher when ifname appears; it finds the
// matching configured-pending binding and drives the NEWLINK sequence.
func (s *BSS) OnNewLink(ctx context.Context, ifname string) {
	for _, b := range s.bindings {
		if b.IfName == ifname {
			if err := s.topology.OnLinkUp(ctx, b, s.WEPKeyed); err != nil {
				s.logger.WarnContext(ctx, "newlink handling failed", slog.String("ifname", ifname), slog.String("error", err.Error()))
			}
			return
		}
	}
}

// OnDelLink is called by the watcher when ifname disappears.
func (s *BSS) OnDelLink(ctx context.Context, ifname string) {
	for _, b := range s.bindings {
		if b.IfName == ifname {
			s.topology.OnLinkDown(ctx, b)
			return
		}
	}
}
