// Package memory is an in-memory host: a small retained node tree that
// implements host.Adapter and host.Batcher.
//
// It is the reference host for tests, the CLI and the demo server. Batches
// are applied with an undo log, so a failing commit leaves the tree exactly
// as it was. Every successful batch is handed to observers, and recorded in
// the mutation log when WithLog is set.
//
// A node removed by a batch and still detached when the batch ends is
// released along with its subtree: later mutations naming it fail with
// ErrForeignNode. Nodes created but never attached stay valid.
package memory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vango-dev/fibers/pkg/element"
	"github.com/vango-dev/fibers/pkg/host"
)

// Errors returned by the memory host.
var (
	ErrForeignNode = errors.New("memory: node was not created by this host")
	ErrNotChild    = errors.New("memory: node is not a child of parent")
	ErrCycle       = errors.New("memory: insertion would create a cycle")
	ErrNoHostNode  = errors.New("memory: function components have no host node")
)

// Node is a retained host node.
type Node struct {
	ID        uint64
	Type      element.Type
	Attrs     map[string]any
	Listeners map[string][]*element.Handler
	Children  []*Node
	Parent    *Node
}

// Tag returns the node's tag ("#text" for text nodes).
func (n *Node) Tag() string {
	return n.Type.Tag
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool {
	return n.Type.Kind == element.KindText
}

// Text returns the node value of a text node.
func (n *Node) Text() string {
	return element.ToString(n.Attrs[element.NodeValueKey])
}

// indexOf returns the position of child among n's children, or -1.
func (n *Node) indexOf(child *Node) int {
	for i, c := range n.Children {
		if c == child {
			return i
		}
	}
	return -1
}

func (n *Node) insertAt(i int, child *Node) {
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = child
	child.Parent = n
}

func (n *Node) removeAt(i int) *Node {
	child := n.Children[i]
	n.Children = append(n.Children[:i], n.Children[i+1:]...)
	child.Parent = nil
	return child
}

// Observer receives every successfully applied batch.
type Observer func(batch []host.Mutation)

// Host is the in-memory host adapter. It is safe for concurrent use; reads
// of the tree from other goroutines must go through View.
type Host struct {
	mu           sync.RWMutex
	nextID       uint64
	nodes        map[uint64]*Node
	log          []host.Mutation
	logging      bool
	logLimit     int
	created      int
	observers    []Observer
	failCreate   func(element.Type) error
	failMutation func(host.Mutation) error
}

// Option configures a Host.
type Option func(*Host)

// WithLog records applied mutations, keeping the most recent limit entries.
// A limit of 0 keeps everything.
func WithLog(limit int) Option {
	return func(h *Host) {
		h.logging = true
		h.logLimit = max(limit, 0)
	}
}

// New creates an empty host.
func New(opts ...Option) *Host {
	h := &Host{nodes: make(map[uint64]*Node)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var (
	_ host.Adapter = (*Host)(nil)
	_ host.Batcher = (*Host)(nil)
)

// Container creates a root node to render into. Containers are not counted
// as created nodes.
func (h *Host) Container(tag string) *Node {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.newNode(element.Host(tag))
}

func (h *Host) newNode(typ element.Type) *Node {
	h.nextID++
	n := &Node{
		ID:        h.nextID,
		Type:      typ,
		Attrs:     make(map[string]any),
		Listeners: make(map[string][]*element.Handler),
	}
	h.nodes[n.ID] = n
	return n
}

// Observe registers fn to receive applied batches.
func (h *Host) Observe(fn Observer) {
	h.mu.Lock()
	h.observers = append(h.observers, fn)
	h.mu.Unlock()
}

// FailCreate installs a hook that can make CreateNode fail.
func (h *Host) FailCreate(fn func(element.Type) error) {
	h.mu.Lock()
	h.failCreate = fn
	h.mu.Unlock()
}

// FailMutation installs a hook that can make individual mutations fail.
func (h *Host) FailMutation(fn func(host.Mutation) error) {
	h.mu.Lock()
	h.failMutation = fn
	h.mu.Unlock()
}

// Log returns a copy of the logged mutations, oldest first. It is empty
// unless the host was created with WithLog.
func (h *Host) Log() []host.Mutation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]host.Mutation(nil), h.log...)
}

// ResetLog clears the mutation log and the created counter.
func (h *Host) ResetLog() {
	h.mu.Lock()
	h.log = nil
	h.created = 0
	h.mu.Unlock()
}

// Created returns the number of nodes created since the last ResetLog.
func (h *Host) Created() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.created
}

// Retained returns the number of nodes the host still tracks: containers,
// attached nodes, and created nodes not yet attached.
func (h *Host) Retained() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

// Lookup returns the node with the given ID. Released nodes are not found.
func (h *Host) Lookup(id uint64) (*Node, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n, ok := h.nodes[id]
	return n, ok
}

// View runs fn while holding the read lock, so fn sees a tree that no batch
// is halfway through.
func (h *Host) View(fn func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn()
}

// Dispatch invokes the listeners registered on n for event and returns how
// many ran.
func (h *Host) Dispatch(n *Node, event string, payload any) int {
	h.mu.RLock()
	handlers := append([]*element.Handler(nil), n.Listeners[event]...)
	h.mu.RUnlock()

	for _, handler := range handlers {
		if handler.Fn != nil {
			handler.Fn(payload)
		}
	}
	return len(handlers)
}

// CreateNode implements host.Adapter.
func (h *Host) CreateNode(typ element.Type, props element.Props) (host.Node, error) {
	if typ.Kind == element.KindFunc {
		return nil, ErrNoHostNode
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failCreate != nil {
		if err := h.failCreate(typ); err != nil {
			return nil, err
		}
	}

	n := h.newNode(typ)
	for name, value := range props {
		if name == element.ChildrenKey {
			continue
		}
		if handler, ok := value.(*element.Handler); ok && element.IsEvent(name) {
			if handler != nil {
				event := element.EventName(name)
				n.Listeners[event] = append(n.Listeners[event], handler)
			}
			continue
		}
		n.Attrs[name] = value
	}
	h.created++
	return n, nil
}

// AppendChild implements host.Adapter.
func (h *Host) AppendChild(parent, child host.Node) error {
	return h.ApplyBatch([]host.Mutation{{Op: host.OpAppend, Parent: parent, Node: child}})
}

// InsertBefore implements host.Adapter.
func (h *Host) InsertBefore(parent, child, before host.Node) error {
	return h.ApplyBatch([]host.Mutation{{Op: host.OpInsertBefore, Parent: parent, Node: child, Before: before}})
}

// RemoveChild implements host.Adapter.
func (h *Host) RemoveChild(parent, child host.Node) error {
	return h.ApplyBatch([]host.Mutation{{Op: host.OpRemove, Parent: parent, Node: child}})
}

// SetProperty implements host.Adapter.
func (h *Host) SetProperty(node host.Node, name string, value any) error {
	return h.ApplyBatch([]host.Mutation{{Op: host.OpSetProperty, Node: node, Name: name, Value: value}})
}

// RemoveProperty implements host.Adapter.
func (h *Host) RemoveProperty(node host.Node, name string) error {
	return h.ApplyBatch([]host.Mutation{{Op: host.OpRemoveProperty, Node: node, Name: name}})
}

// AddEventListener implements host.Adapter.
func (h *Host) AddEventListener(node host.Node, event string, handler *element.Handler) error {
	return h.ApplyBatch([]host.Mutation{{Op: host.OpAddListener, Node: node, Name: event, Handler: handler}})
}

// RemoveEventListener implements host.Adapter.
func (h *Host) RemoveEventListener(node host.Node, event string, handler *element.Handler) error {
	return h.ApplyBatch([]host.Mutation{{Op: host.OpRemoveListener, Node: node, Name: event, Handler: handler}})
}

// ApplyBatch implements host.Batcher. Either every mutation is applied or
// none is.
func (h *Host) ApplyBatch(batch []host.Mutation) error {
	if len(batch) == 0 {
		return nil
	}

	h.mu.Lock()
	undo := make([]func(), 0, len(batch))
	for i, m := range batch {
		var (
			u   func()
			err error
		)
		if h.failMutation != nil {
			err = h.failMutation(m)
		}
		if err == nil {
			u, err = h.apply(m)
		}
		if err != nil {
			for j := len(undo) - 1; j >= 0; j-- {
				undo[j]()
			}
			h.mu.Unlock()
			return fmt.Errorf("mutation %d (%s): %w", i, m, err)
		}
		undo = append(undo, u)
	}
	h.record(batch)
	h.release(batch)
	observers := append([]Observer(nil), h.observers...)
	h.mu.Unlock()

	for _, fn := range observers {
		fn(batch)
	}
	return nil
}

func (h *Host) record(batch []host.Mutation) {
	if !h.logging {
		return
	}
	h.log = append(h.log, batch...)
	if h.logLimit > 0 && len(h.log) > h.logLimit {
		h.log = append(h.log[:0], h.log[len(h.log)-h.logLimit:]...)
	}
}

// release forgets the subtrees removed by batch that are still detached.
func (h *Host) release(batch []host.Mutation) {
	for _, m := range batch {
		if m.Op != host.OpRemove {
			continue
		}
		n := m.Node.(*Node)
		if n.Parent != nil || h.nodes[n.ID] != n {
			continue
		}
		stack := []*Node{n}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = append(stack[:len(stack)-1], top.Children...)
			delete(h.nodes, top.ID)
		}
	}
}

// apply performs m and returns a function that reverts it.
func (h *Host) apply(m host.Mutation) (func(), error) {
	n, err := h.node(m.Node)
	if err != nil {
		return nil, err
	}

	switch m.Op {
	case host.OpAppend, host.OpInsertBefore:
		parent, err := h.node(m.Parent)
		if err != nil {
			return nil, err
		}
		for p := parent; p != nil; p = p.Parent {
			if p == n {
				return nil, ErrCycle
			}
		}
		at := len(parent.Children)
		if m.Op == host.OpInsertBefore {
			before, err := h.node(m.Before)
			if err != nil {
				return nil, err
			}
			if before.Parent != parent {
				return nil, ErrNotChild
			}
			at = parent.indexOf(before)
		}
		oldParent := n.Parent
		oldIndex := -1
		if oldParent != nil {
			oldIndex = oldParent.indexOf(n)
			oldParent.removeAt(oldIndex)
			if oldParent == parent && oldIndex < at {
				at--
			}
		}
		parent.insertAt(at, n)
		return func() {
			parent.removeAt(parent.indexOf(n))
			if oldParent != nil {
				oldParent.insertAt(oldIndex, n)
			}
		}, nil

	case host.OpRemove:
		parent, err := h.node(m.Parent)
		if err != nil {
			return nil, err
		}
		if n.Parent != parent {
			return nil, ErrNotChild
		}
		i := parent.indexOf(n)
		parent.removeAt(i)
		return func() { parent.insertAt(i, n) }, nil

	case host.OpSetProperty:
		old, had := n.Attrs[m.Name]
		n.Attrs[m.Name] = m.Value
		return func() { restoreAttr(n, m.Name, old, had) }, nil

	case host.OpRemoveProperty:
		old, had := n.Attrs[m.Name]
		delete(n.Attrs, m.Name)
		return func() { restoreAttr(n, m.Name, old, had) }, nil

	case host.OpAddListener:
		n.Listeners[m.Name] = append(n.Listeners[m.Name], m.Handler)
		return func() {
			ls := n.Listeners[m.Name]
			n.Listeners[m.Name] = ls[:len(ls)-1]
			if len(n.Listeners[m.Name]) == 0 {
				delete(n.Listeners, m.Name)
			}
		}, nil

	case host.OpRemoveListener:
		ls := n.Listeners[m.Name]
		for i, l := range ls {
			if l != m.Handler {
				continue
			}
			n.Listeners[m.Name] = append(ls[:i:i], ls[i+1:]...)
			if len(n.Listeners[m.Name]) == 0 {
				delete(n.Listeners, m.Name)
			}
			return func() { n.Listeners[m.Name] = ls }, nil
		}
		return func() {}, nil

	default:
		return nil, fmt.Errorf("memory: unknown op %d", m.Op)
	}
}

func restoreAttr(n *Node, name string, old any, had bool) {
	if had {
		n.Attrs[name] = old
	} else {
		delete(n.Attrs, name)
	}
}

// node resolves a handle created by this host.
func (h *Host) node(handle host.Node) (*Node, error) {
	n, ok := handle.(*Node)
	if !ok || n == nil || h.nodes[n.ID] != n {
		return nil, fmt.Errorf("%w: %T", ErrForeignNode, handle)
	}
	return n, nil
}

// Tree is a value snapshot of a node, convenient for comparisons.
type Tree struct {
	Tag      string
	Text     string            `json:",omitempty"`
	Attrs    map[string]string `json:",omitempty"`
	Events   []string          `json:",omitempty"`
	Children []Tree            `json:",omitempty"`
}

// Snapshot returns a value copy of the subtree rooted at n.
func (h *Host) Snapshot(n *Node) Tree {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return snapshot(n)
}

func snapshot(n *Node) Tree {
	t := Tree{Tag: n.Tag()}
	if n.IsText() {
		t.Text = n.Text()
	} else if len(n.Attrs) > 0 {
		t.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			t.Attrs[k] = element.ToString(v)
		}
	}
	for event, ls := range n.Listeners {
		if len(ls) > 0 {
			t.Events = append(t.Events, event)
		}
	}
	sort.Strings(t.Events)
	for _, c := range n.Children {
		t.Children = append(t.Children, snapshot(c))
	}
	return t
}

// Preorder lists the tags of the subtree below n (n excluded) in pre-order.
func (h *Host) Preorder(n *Node) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var tags []string
	var walk func(*Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			tags = append(tags, c.Tag())
			walk(c)
		}
	}
	walk(n)
	return tags
}
