package vland

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/dynvland/dynvland/internal/preauth"
)

// fakeStationVIF records Add/Remove calls on behalf of the radio driver
// seam, with optional per-name failure injection.
type fakeStationVIF struct {
	mu      sync.Mutex
	added   map[string]bool
	failAdd map[string]bool
}

func newFakeStationVIF() *fakeStationVIF {
	return &fakeStationVIF{added: make(map[string]bool), failAdd: make(map[string]bool)}
}

func (f *fakeStationVIF) Add(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd[name] {
		return errors.New("fake station vif add failure")
	}
	f.added[name] = true
	return nil
}

func (f *fakeStationVIF) Remove(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.added, name)
	return nil
}

// fakeGroupKeeper records EnsureGroup/ReleaseGroup calls, with optional
// failure injection per VID.
type fakeGroupKeeper struct {
	mu       sync.Mutex
	ensured  map[int]int
	released map[int]int
	failVID  map[int]bool
}

func newFakeGroupKeeper() *fakeGroupKeeper {
	return &fakeGroupKeeper{ensured: make(map[int]int), released: make(map[int]int), failVID: make(map[int]bool)}
}

func (f *fakeGroupKeeper) EnsureGroup(vid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured[vid]++
	if f.failVID[vid] {
		return errors.New("fake group ensure failure")
	}
	return nil
}

func (f *fakeGroupKeeper) ReleaseGroup(vid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released[vid]++
	return nil
}

// fakeSnoop records Start/Stop calls.
type fakeSnoop struct {
	mu      sync.Mutex
	started map[string]bool
}

func newFakeSnoop() *fakeSnoop {
	return &fakeSnoop{started: make(map[string]bool)}
}

func (f *fakeSnoop) Start(ifname string) (preauth.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started[ifname] = true
	return ifname, nil
}

func (f *fakeSnoop) Stop(h preauth.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name, ok := h.(string); ok {
		delete(f.started, name)
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
