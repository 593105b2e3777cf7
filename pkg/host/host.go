// Package host defines the contract between the engine and the platform tree
// it mutates.
//
// The engine creates nodes during the render phase (detached, invisible to
// observers of the host tree) and performs every attaching or mutating call
// during commit. An adapter that also implements Batcher receives a whole
// commit at once and can apply it atomically.
package host

import (
	"fmt"

	"github.com/vango-dev/fibers/pkg/element"
)

// Node is an opaque handle to a platform node. Handles must be comparable.
type Node any

// Adapter creates and mutates host nodes.
type Adapter interface {
	// CreateNode returns a detached node for typ, initialized from props.
	CreateNode(typ element.Type, props element.Props) (Node, error)

	// AppendChild attaches child as the last child of parent.
	AppendChild(parent, child Node) error

	// InsertBefore attaches child under parent, immediately before before.
	InsertBefore(parent, child, before Node) error

	// RemoveChild detaches child from parent.
	RemoveChild(parent, child Node) error

	// SetProperty sets an attribute or property.
	SetProperty(node Node, name string, value any) error

	// RemoveProperty removes an attribute or property.
	RemoveProperty(node Node, name string) error

	// AddEventListener subscribes h to event on node.
	AddEventListener(node Node, event string, h *element.Handler) error

	// RemoveEventListener removes a subscription added by AddEventListener.
	RemoveEventListener(node Node, event string, h *element.Handler) error
}

// Batcher is implemented by adapters that can apply a whole commit as one
// all-or-nothing operation.
type Batcher interface {
	ApplyBatch(batch []Mutation) error
}

// Op is the type of a host mutation.
type Op uint8

const (
	OpAppend Op = iota + 1
	OpInsertBefore
	OpRemove
	OpSetProperty
	OpRemoveProperty
	OpAddListener
	OpRemoveListener
)

// String returns the string representation of the Op.
func (op Op) String() string {
	switch op {
	case OpAppend:
		return "Append"
	case OpInsertBefore:
		return "InsertBefore"
	case OpRemove:
		return "Remove"
	case OpSetProperty:
		return "SetProperty"
	case OpRemoveProperty:
		return "RemoveProperty"
	case OpAddListener:
		return "AddListener"
	case OpRemoveListener:
		return "RemoveListener"
	default:
		return "Unknown"
	}
}

// Mutation is one planned host operation.
type Mutation struct {
	Op      Op
	Parent  Node             // Append, InsertBefore, Remove
	Node    Node             // Target node (the child for tree operations)
	Before  Node             // InsertBefore
	Name    string           // Property or event name
	Value   any              // SetProperty
	Handler *element.Handler // AddListener, RemoveListener
}

// String returns a short description for logs.
func (m Mutation) String() string {
	switch m.Op {
	case OpSetProperty:
		return fmt.Sprintf("%s %s=%v", m.Op, m.Name, m.Value)
	case OpRemoveProperty, OpAddListener, OpRemoveListener:
		return fmt.Sprintf("%s %s", m.Op, m.Name)
	default:
		return m.Op.String()
	}
}

// Apply performs a single mutation through the adapter.
func Apply(a Adapter, m Mutation) error {
	switch m.Op {
	case OpAppend:
		return a.AppendChild(m.Parent, m.Node)
	case OpInsertBefore:
		return a.InsertBefore(m.Parent, m.Node, m.Before)
	case OpRemove:
		return a.RemoveChild(m.Parent, m.Node)
	case OpSetProperty:
		return a.SetProperty(m.Node, m.Name, m.Value)
	case OpRemoveProperty:
		return a.RemoveProperty(m.Node, m.Name)
	case OpAddListener:
		return a.AddEventListener(m.Node, m.Name, m.Handler)
	case OpRemoveListener:
		return a.RemoveEventListener(m.Node, m.Name, m.Handler)
	default:
		return fmt.Errorf("host: unknown mutation op %d", m.Op)
	}
}

// ApplyAll applies a batch, atomically when a implements Batcher and in
// order otherwise. It returns the number of mutations applied before the
// first failure (len(batch) on success, 0 on Batcher failure).
func ApplyAll(a Adapter, batch []Mutation) (int, error) {
	if b, ok := a.(Batcher); ok {
		if err := b.ApplyBatch(batch); err != nil {
			return 0, err
		}
		return len(batch), nil
	}
	for i, m := range batch {
		if err := Apply(a, m); err != nil {
			return i, err
		}
	}
	return len(batch), nil
}
