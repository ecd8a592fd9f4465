// Package vland implements the dynamic VLAN topology manager: translating
// per-station VLAN binding decisions into live bridge, VLAN-child, and
// port-enrollment state on the host, driven by kernel link notifications.
package vland

import "strings"

// MaxVlanID is the highest valid 802.1Q VLAN identifier.
const MaxVlanID = 4094

// VlanIDWildcard marks a binding as a template, not a concrete VLAN.
const VlanIDWildcard = -1

// IfNameSize mirrors the kernel's IFNAMSIZ; names at or above this length
// are rejected before any syscall is attempted.
const IfNameSize = 16

// VlanDescription describes the tagging requirements of one binding, as
// computed by the authenticator's VLAN assignment policy.
type VlanDescription struct {
	NotEmpty bool
	Untagged int
	Tagged   []int
}

// CleanFlags is the accumulated set of teardown obligations a binding or a
// registry entry is responsible for. Binding-owned and registry-owned bits
// share one namespace; which side owns which bit is documented per
// constant, matching the two overlapping bit spaces of the source this was
// translated from.
type CleanFlags uint8

const (
	// CleanWLANPort is set on a Binding when its own interface was
	// enrolled into a bridge and must be un-enrolled on teardown.
	CleanWLANPort CleanFlags = 1 << iota
	// CleanBR is set on a registry entry when this daemon created the
	// bridge and must destroy it once the last user departs.
	CleanBR
	// CleanVLAN is set on a registry entry when this daemon created the
	// VLAN trunk child and must destroy it.
	CleanVLAN
	// CleanVLANPort is set on a registry entry when the trunk child was
	// enrolled into the bridge as a port.
	CleanVLANPort
)

// Has reports whether all bits in want are set.
func (c CleanFlags) Has(want CleanFlags) bool { return c&want == want }

// Binding is one VLAN binding: either a wildcard template awaiting
// station-attach, or a concrete binding bound to one interface name.
type Binding struct {
	IfName      string
	VlanID      int
	Desc        VlanDescription
	DynamicVlan int
	Configured  bool
	Clean       CleanFlags
	PreAuth     interface{} // preauth.Handle returned by the snoop's Start, nil when none is running

	// acquired records the bridge names this binding's own interface was
	// enrolled into, in acquisition order, so teardown can release them
	// in reverse.
	acquired []string
}

// IsWildcard reports whether this binding is a template, not a concrete
// station binding.
func (b *Binding) IsWildcard() bool {
	return b.VlanID == VlanIDWildcard
}

// ValidateWildcardName checks the exactly-one-'#' invariant.
func ValidateWildcardName(ifname string) error {
	if strings.Count(ifname, "#") != 1 {
		return ErrBadWildcard
	}
	return nil
}

// SplitWildcard splits a wildcard ifname template at '#' into its prefix
// and suffix, for materializing a concrete station ifname.
func SplitWildcard(template string) (prefix, suffix string, err error) {
	idx := strings.IndexByte(template, '#')
	if idx < 0 {
		return "", "", ErrBadWildcard
	}
	return template[:idx], template[idx+1:], nil
}

// ValidVID reports whether vid is in the legal 802.1Q range.
func ValidVID(vid int) bool {
	return vid >= 1 && vid <= MaxVlanID
}

// DistinctTagged returns the tagged VIDs with duplicates removed and the
// untagged VID excluded, preserving ascending order.
func (d VlanDescription) DistinctTagged() []int {
	seen := make(map[int]bool, len(d.Tagged))
	out := make([]int, 0, len(d.Tagged))
	for _, vid := range d.Tagged {
		if vid == d.Untagged || seen[vid] {
			continue
		}
		seen[vid] = true
		out = append(out, vid)
	}
	return out
}
