package fiber

import (
	"github.com/vango-dev/fibers/pkg/element"
	"github.com/vango-dev/fibers/pkg/host"
)

// Effect is the pending host mutation of a fiber.
type Effect uint8

const (
	EffectNone      Effect = iota // Nothing to do, or not yet reconciled
	EffectPlacement               // Insert the fiber's host node
	EffectUpdate                  // Diff and patch the fiber's host node
	EffectDeletion                // Remove the fiber's host node(s)
)

// String returns the string representation of the Effect.
func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "None"
	case EffectPlacement:
		return "Placement"
	case EffectUpdate:
		return "Update"
	case EffectDeletion:
		return "Deletion"
	default:
		return "Unknown"
	}
}

// RootType is the type of root fibers. Root fibers own the container node.
var RootType = element.Type{Kind: element.KindHost, Tag: "#root"}

// Fiber is one position of the tree together with its reconciliation state.
type Fiber struct {
	Type  element.Type
	Props element.Props

	// Node is the host node this fiber produced itself. It is nil for
	// function components and for host fibers not yet worked on.
	Node host.Node

	Parent  *Fiber
	Child   *Fiber
	Sibling *Fiber

	// Alternate is the fiber at the same position in the last committed
	// tree, or nil for new fibers.
	Alternate *Fiber

	Effect Effect
}

// NewRoot creates the root of a work-in-progress tree rendering el into
// container. alternate is the current root, or nil for a first render.
func NewRoot(container host.Node, el *element.Element, alternate *Fiber) *Fiber {
	return &Fiber{
		Type: RootType,
		Props: element.Props{
			element.ChildrenKey: []*element.Element{el},
		},
		Node:      container,
		Alternate: alternate,
	}
}

// IsRoot reports whether f is the root of its tree.
func (f *Fiber) IsRoot() bool {
	return f.Parent == nil
}

// Children returns f's children in order.
func (f *Fiber) Children() []*Fiber {
	var kids []*Fiber
	for c := f.Child; c != nil; c = c.Sibling {
		kids = append(kids, c)
	}
	return kids
}

// Next returns the fiber after f in depth-first pre-order: f's child, else
// the sibling of f or of its nearest ancestor that has one. It returns nil
// when the traversal has left the tree.
func Next(f *Fiber) *Fiber {
	if f.Child != nil {
		return f.Child
	}
	for n := f; n != nil; n = n.Parent {
		if n.Sibling != nil {
			return n.Sibling
		}
	}
	return nil
}

// HostParent returns the nearest ancestor of f that owns a host node.
func HostParent(f *Fiber) *Fiber {
	p := f.Parent
	for p != nil && p.Node == nil {
		p = p.Parent
	}
	return p
}

// Walk calls fn for root and every fiber below it in pre-order.
func Walk(root *Fiber, fn func(*Fiber)) {
	for f := root; f != nil; {
		fn(f)
		if f.Child != nil {
			f = f.Child
			continue
		}
		for f != nil && f != root && f.Sibling == nil {
			f = f.Parent
		}
		if f == nil || f == root {
			return
		}
		f = f.Sibling
	}
}

// Detach clears the alternate links and effects of a committed tree, making
// the tree it was built against unreachable.
func Detach(root *Fiber) {
	Walk(root, func(f *Fiber) {
		f.Alternate = nil
		f.Effect = EffectNone
	})
}
