package vland

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// linkEvent is one queued NEWLINK/DELLINK notification, carrying only the
// interface name: the single piece of data the topology manager needs.
type linkEvent struct {
	ifname string
	up     bool
}

// Watcher subscribes to rtnetlink link notifications and feeds them,
// serialized through one worker goroutine, into the owning BSS. Built on
// github.com/vishvananda/netlink.LinkSubscribe, which already parses the
// NEWLINK/DELLINK header chain and the IFLA_IFNAME attribute; the watcher
// itself only enqueues, preserving the single-event-loop discipline even
// though the subscription delivery runs on the library's own goroutine.
type Watcher struct {
	bss    *BSS
	logger *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	updates chan netlink.LinkUpdate
	queue   chan linkEvent
}

// NewWatcher constructs a watcher bound to bss. Call AttachWatcher on bss
// separately so the BSS can locate it for Init/Deinit.
func NewWatcher(bss *BSS, logger *slog.Logger) *Watcher {
	return &Watcher{
		bss:    bss,
		logger: logger.With("component", "vland-watcher", slog.String("iface", bss.Iface)),
	}
}

// Start opens the netlink subscription and begins processing events. It is
// idempotent: calling Start twice without an intervening Stop is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	updates := make(chan netlink.LinkUpdate)
	done := make(chan struct{})
	queue := make(chan linkEvent, 64)

	if err := netlink.LinkSubscribe(updates, done); err != nil {
		cancel()
		return err
	}

	w.cancel = cancel
	w.done = done
	w.updates = updates
	w.queue = queue

	go w.pump(runCtx, updates)
	go w.drain(runCtx, queue)

	return nil
}

// Stop cancels the worker goroutines and closes the subscription. It
// returns without waiting for the worker goroutines to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel == nil {
		return
	}
	w.cancel()
	close(w.done)
	w.cancel = nil
}

// pump reads raw link updates off the netlink subscription and translates
// them into the minimal linkEvent the topology manager needs, dropping
// anything that arrives with no interface name attached.
func (w *Watcher) pump(ctx context.Context, updates <-chan netlink.LinkUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			name := upd.Link.Attrs().Name
			if name == "" {
				continue
			}
			up := upd.Header.Type == unix.RTM_NEWLINK
			select {
			case w.queue <- linkEvent{ifname: name, up: up}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// drain is the single worker goroutine that actually calls into the
// topology manager, preserving the one-event-at-a-time discipline: the
// next queued event is not read until the current one's dependent
// operations have all completed synchronously.
func (w *Watcher) drain(ctx context.Context, queue <-chan linkEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-queue:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev linkEvent) {
	if ev.up {
		w.bss.OnNewLink(ctx, ev.ifname)
		return
	}

	// Race suppression: if the name still resolves to an index, the
	// kernel already re-created it, so this DELLINK is stale.
	if _, err := netlink.LinkByName(ev.ifname); err == nil {
		w.logger.DebugContext(ctx, "dellink race suppressed, interface still resolves", slog.String("ifname", ev.ifname))
		return
	}
	w.bss.OnDelLink(ctx, ev.ifname)
}
