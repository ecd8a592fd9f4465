package vland

import "errors"

// Sentinel error kinds, per the small fixed taxonomy this subsystem uses.
// Callers branch on kind with errors.Is; everything else is wrapped with
// %w.
var (
	// ErrNameTooLong is returned before any syscall when an interface
	// name would not fit in IFNAMSIZ.
	ErrNameTooLong = errors.New("vland: interface name too long")
	// ErrBadWildcard marks a malformed wildcard template.
	ErrBadWildcard = errors.New("vland: wildcard ifname must contain exactly one '#'")
	// ErrBadVID marks a VID outside 1..MaxVlanID.
	ErrBadVID = errors.New("vland: vlan id out of range")
	// ErrNotWildcard is returned by AddDynamic against a concrete binding.
	ErrNotWildcard = errors.New("vland: add_dynamic requires a wildcard template")
	// ErrNoSuchBinding is returned by RemoveDynamic when no binding
	// matches the requested VID with a positive dynamic use count.
	ErrNoSuchBinding = errors.New("vland: no dynamic binding for vid")
	// ErrWEPRejected is the security-invariant refusal: WEP-keyed BSSes
	// may never have a VLAN interface created.
	ErrWEPRejected = errors.New("vland: refusing to create vlan interface on a WEP-keyed bss")
	// ErrChildSignalDeath marks a helper script killed by a signal,
	// always a hard failure regardless of exit status.
	ErrChildSignalDeath = errors.New("vland: helper script terminated by signal")
	// ErrNotSupported marks a driver operation the active driver does
	// not implement (e.g. VlanSetNameType under the netlink driver).
	ErrNotSupported = errors.New("vland: operation not supported by this driver")
)
