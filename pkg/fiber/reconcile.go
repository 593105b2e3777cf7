package fiber

import "github.com/vango-dev/fibers/pkg/element"

// Reconcile builds wip's children from elements, matching them by position
// against the children of wip.Alternate. Matching is positional only: the
// element at index i is compared with the i-th old child and the two are the
// same logical node exactly when their types are equal.
//
//   - same type: an EffectUpdate fiber reusing the old host node
//   - new element without a match: an EffectPlacement fiber
//   - old fiber without a match: tagged EffectDeletion and appended to
//     deletions; it is not linked into the new tree
//
// Reconcile returns the extended deletions slice.
func Reconcile(wip *Fiber, elements []*element.Element, deletions []*Fiber) []*Fiber {
	var old *Fiber
	if wip.Alternate != nil {
		old = wip.Alternate.Child
	}

	wip.Child = nil
	var prev *Fiber

	for i := 0; i < len(elements) || old != nil; i++ {
		var el *element.Element
		if i < len(elements) {
			el = elements[i]
		}

		same := old != nil && el != nil && old.Type == el.Type

		var next *Fiber
		switch {
		case same:
			next = &Fiber{
				Type:      old.Type,
				Props:     el.Props,
				Node:      old.Node,
				Parent:    wip,
				Alternate: old,
				Effect:    EffectUpdate,
			}
		case el != nil:
			next = &Fiber{
				Type:   el.Type,
				Props:  el.Props,
				Parent: wip,
				Effect: EffectPlacement,
			}
		}

		if old != nil && !same {
			old.Effect = EffectDeletion
			deletions = append(deletions, old)
		}
		if old != nil {
			old = old.Sibling
		}

		if next == nil {
			continue
		}
		if prev == nil {
			wip.Child = next
		} else {
			prev.Sibling = next
		}
		prev = next
	}

	return deletions
}
