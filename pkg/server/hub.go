package server

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/vango-dev/fibers/pkg/host"
	"github.com/vango-dev/fibers/pkg/host/memory"
	"github.com/vango-dev/fibers/pkg/protocol"
	"github.com/vango-dev/fibers/pkg/telemetry"
)

// ErrExecRejected is returned by Join when the Exec function refuses the
// snapshot request, for example because the loop's post queue is full.
var ErrExecRejected = errors.New("server: exec rejected snapshot request")

// Sink receives encoded frames from a Hub.
type Sink interface {
	// Send queues frame without blocking and reports whether it was
	// accepted. A Sink that returns false is dropped and closed.
	Send(frame []byte) bool

	// Close disconnects the sink. It must not call back into the Hub.
	Close()
}

// Hub turns host batches into patches frames and fans them out to sinks.
type Hub struct {
	host    *memory.Host
	root    *memory.Node
	logger  *slog.Logger
	metrics *telemetry.Metrics
	exec    func(func()) bool

	mu    sync.Mutex
	seq   uint64
	known map[uint64]bool
	sinks map[Sink]struct{}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the hub logger.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHubMetrics records viewer and frame metrics on m.
func WithHubMetrics(m *telemetry.Metrics) HubOption {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithExec runs snapshot requests through exec, which must run fn on the
// goroutine that drives the engine and report whether fn was accepted.
func WithExec(exec func(fn func()) bool) HubOption {
	return func(h *Hub) {
		h.exec = exec
	}
}

// NewHub creates a hub streaming the subtree under root and registers it as
// an observer of h. Nodes already attached under root count as announced.
func NewHub(h *memory.Host, root *memory.Node, opts ...HubOption) *Hub {
	hub := &Hub{
		host:   h,
		root:   root,
		logger: slog.Default().With("component", "hub"),
		known:  make(map[uint64]bool),
		sinks:  make(map[Sink]struct{}),
	}
	for _, opt := range opts {
		opt(hub)
	}

	h.View(func() {
		walkNodes(root, func(n *memory.Node) { hub.known[n.ID] = true })
	})
	h.Observe(hub.observe)
	return hub
}

// Seq returns the sequence number of the last patches frame.
func (h *Hub) Seq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seq
}

// Viewers returns the number of attached sinks.
func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sinks)
}

// Join sends s a snapshot of the current tree and attaches it to the
// stream. The snapshot and the attach happen atomically with respect to
// broadcasts.
func (h *Hub) Join(ctx context.Context, s Sink) error {
	if h.exec == nil {
		h.join(s)
		return nil
	}

	done := make(chan struct{})
	if !h.exec(func() {
		h.join(s)
		close(done)
	}) {
		return ErrExecRejected
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) join(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()

	frame := h.snapshotLocked().Frame(protocol.FrameSnapshot).Encode()
	if !s.Send(frame) {
		h.metrics.WebSocketError("overflow")
		s.Close()
		return
	}
	h.metrics.FrameSent("snapshot")
	h.sinks[s] = struct{}{}
	h.metrics.ViewerJoined()
	h.logger.Debug("viewer joined", "seq", h.seq, "viewers", len(h.sinks))
}

// Leave detaches s. It is a no-op for unknown sinks.
func (h *Hub) Leave(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

func (h *Hub) removeLocked(s Sink) {
	if _, ok := h.sinks[s]; !ok {
		return
	}
	delete(h.sinks, s)
	h.metrics.ViewerLeft()
}

// Snapshot returns the frame a joining viewer receives.
func (h *Hub) Snapshot() *protocol.PatchesFrame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *Hub) snapshotLocked() *protocol.PatchesFrame {
	pf := &protocol.PatchesFrame{Seq: h.seq}
	h.host.View(func() {
		pf.Patches = announce(pf.Patches, h.root)
		var walk func(parent *memory.Node)
		walk = func(parent *memory.Node) {
			for _, c := range parent.Children {
				pf.Patches = announce(pf.Patches, c)
				pf.Patches = append(pf.Patches, protocol.Patch{Op: protocol.PatchAppend, ID: c.ID, Parent: parent.ID})
				walk(c)
			}
		}
		walk(h.root)
	})
	return pf
}

// Error broadcasts err as an error frame. The sequence number is not
// advanced.
func (h *Hub) Error(err error) {
	em := protocol.NewError(err)
	if em == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(em.Frame().Encode(), "error")
}

// Close disconnects every sink.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sinks {
		h.removeLocked(s)
		s.Close()
	}
}

func (h *Hub) observe(batch []host.Mutation) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var patches []protocol.Patch
	h.host.View(func() {
		patches = h.translateLocked(batch)
	})
	if len(patches) == 0 {
		return
	}
	h.seq++
	pf := &protocol.PatchesFrame{Seq: h.seq, Patches: patches}
	h.broadcastLocked(pf.Frame(protocol.FramePatches).Encode(), "patches")
}

func (h *Hub) broadcastLocked(frame []byte, frameType string) {
	for s := range h.sinks {
		if s.Send(frame) {
			h.metrics.FrameSent(frameType)
			continue
		}
		h.logger.Warn("viewer too slow, disconnecting")
		h.metrics.WebSocketError("overflow")
		h.removeLocked(s)
		s.Close()
	}
}

// translateLocked maps batch to patches. Mutations outside the hub's root
// are skipped. A node is announced the first time it is attached under a
// known parent.
func (h *Hub) translateLocked(batch []host.Mutation) []protocol.Patch {
	var out []protocol.Patch
	for _, m := range batch {
		n, ok := m.Node.(*memory.Node)
		if !ok {
			continue
		}

		switch m.Op {
		case host.OpAppend, host.OpInsertBefore:
			parent, _ := m.Parent.(*memory.Node)
			if parent == nil || !h.known[parent.ID] {
				continue
			}
			if !h.known[n.ID] {
				out = announce(out, n)
				h.known[n.ID] = true
			}
			p := protocol.Patch{Op: protocol.PatchAppend, ID: n.ID, Parent: parent.ID}
			if before, ok := m.Before.(*memory.Node); ok && m.Op == host.OpInsertBefore {
				p.Op = protocol.PatchInsertBefore
				p.Before = before.ID
			}
			out = append(out, p)

		case host.OpRemove:
			parent, _ := m.Parent.(*memory.Node)
			if parent == nil || !h.known[n.ID] {
				continue
			}
			out = append(out, protocol.Patch{Op: protocol.PatchRemove, ID: n.ID, Parent: parent.ID})
			walkNodes(n, func(d *memory.Node) { delete(h.known, d.ID) })

		case host.OpSetProperty:
			if h.known[n.ID] {
				out = append(out, protocol.Patch{Op: protocol.PatchSetProp, ID: n.ID, Key: m.Name, Value: m.Value})
			}

		case host.OpRemoveProperty:
			if h.known[n.ID] {
				out = append(out, protocol.Patch{Op: protocol.PatchRemoveProp, ID: n.ID, Key: m.Name})
			}

		case host.OpAddListener:
			if h.known[n.ID] && m.Handler != nil {
				out = append(out, protocol.Patch{Op: protocol.PatchListen, ID: n.ID, Key: m.Name})
			}

		case host.OpRemoveListener:
			if h.known[n.ID] && m.Handler != nil {
				out = append(out, protocol.Patch{Op: protocol.PatchUnlisten, ID: n.ID, Key: m.Name})
			}
		}
	}
	return out
}

// announce appends the patches that describe n without its children.
func announce(out []protocol.Patch, n *memory.Node) []protocol.Patch {
	create := protocol.Patch{Op: protocol.PatchCreate, ID: n.ID, Kind: protocol.NodeElement, Tag: n.Tag()}
	if n.IsText() {
		create.Kind = protocol.NodeText
	}
	out = append(out, create)

	names := make([]string, 0, len(n.Attrs))
	for name := range n.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, protocol.Patch{Op: protocol.PatchSetProp, ID: n.ID, Key: name, Value: n.Attrs[name]})
	}

	events := make([]string, 0, len(n.Listeners))
	for event := range n.Listeners {
		events = append(events, event)
	}
	sort.Strings(events)
	for _, event := range events {
		for range n.Listeners[event] {
			out = append(out, protocol.Patch{Op: protocol.PatchListen, ID: n.ID, Key: event})
		}
	}
	return out
}

// walkNodes calls fn for n and every descendant in pre-order.
func walkNodes(n *memory.Node, fn func(*memory.Node)) {
	fn(n)
	for _, c := range n.Children {
		walkNodes(c, fn)
	}
}
