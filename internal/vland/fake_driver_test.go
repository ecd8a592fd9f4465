package vland

import (
	"context"
	"sync"
)

// fakeDriver is an in-memory Driver implementation recording every call,
// so tests can assert both the resulting state and the exact sequence of
// operations issued (ordering invariants matter as much as end state).
type fakeDriver struct {
	mu    sync.Mutex
	calls []string

	up        map[string]bool
	bridges   map[string]bool
	vlanChild map[string]struct{ trunk string; vid int }
	ports     map[string]string // port -> bridge

	skipDelBr bool

	failOn map[string]error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		up:        make(map[string]bool),
		bridges:   make(map[string]bool),
		vlanChild: make(map[string]struct{ trunk string; vid int }),
		ports:     make(map[string]string),
		failOn:    make(map[string]error),
	}
}

func (f *fakeDriver) record(s string) {
	f.calls = append(f.calls, s)
}

func (f *fakeDriver) IfUp(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ifup " + name)
	if err := f.failOn["ifup "+name]; err != nil {
		return err
	}
	f.up[name] = true
	return nil
}

func (f *fakeDriver) IfDown(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ifdown " + name)
	f.up[name] = false
	return nil
}

func (f *fakeDriver) VlanAdd(ctx context.Context, trunk string, vid int, childName string) (VlanAddResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("vlan_add " + childName)
	if err := f.failOn["vlan_add "+childName]; err != nil {
		return 0, err
	}
	if existing, ok := f.vlanChild[childName]; ok {
		if existing.trunk == trunk && existing.vid == vid {
			return VlanExisted, nil
		}
	}
	f.vlanChild[childName] = struct {
		trunk string
		vid   int
	}{trunk, vid}
	return VlanCreated, nil
}

func (f *fakeDriver) VlanRemove(ctx context.Context, childName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("vlan_rem " + childName)
	delete(f.vlanChild, childName)
	return nil
}

func (f *fakeDriver) VlanSetNameType(ctx context.Context, mode VlanNamingMode) error {
	f.record("vlan_set_name_type")
	return nil
}

func (f *fakeDriver) BridgeAdd(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("br_addbr " + name)
	if err := f.failOn["br_addbr "+name]; err != nil {
		return err
	}
	f.bridges[name] = true
	return nil
}

func (f *fakeDriver) BridgeDel(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("br_delbr " + name)
	delete(f.bridges, name)
	return nil
}

func (f *fakeDriver) BridgeAddIf(ctx context.Context, br, port string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("br_addif " + br + " " + port)
	if err := f.failOn["br_addif "+br+" "+port]; err != nil {
		return err
	}
	f.ports[port] = br
	return nil
}

func (f *fakeDriver) BridgeDelIf(ctx context.Context, br, port string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("br_delif " + br + " " + port)
	delete(f.ports, port)
	return nil
}

func (f *fakeDriver) BridgeNumPorts(ctx context.Context, br string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.ports {
		if b == br {
			n++
		}
	}
	return n, nil
}

func (f *fakeDriver) SkipDelBrWhenPortsRemain() bool { return f.skipDelBr }

func (f *fakeDriver) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}
