// Package preauth declares the seam into the RSN pre-authentication snoop.
// The snoop itself is out of scope here: it only needs to know an interface
// came up and later that it went away.
package preauth

// Handle identifies one snoop instance bound to an interface.
type Handle interface{}

// Snoop starts and stops pre-authentication frame capture on an interface.
type Snoop interface {
	Start(ifname string) (Handle, error)
	Stop(h Handle) error
}

// Noop satisfies Snoop for BSSes that do not run pre-authentication.
type Noop struct{}

func (Noop) Start(string) (Handle, error) { return nil, nil }
func (Noop) Stop(Handle) error             { return nil }
