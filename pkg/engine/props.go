package engine

import (
	"reflect"
	"sort"

	"github.com/vango-dev/fibers/pkg/element"
	"github.com/vango-dev/fibers/pkg/host"
)

// diffProps returns the mutations turning prev into next on node, in this
// order: stale listeners removed, stale attributes removed, changed or added
// attributes set, new listeners added. Keys are visited in sorted order.
func diffProps(node host.Node, prev, next element.Props) []host.Mutation {
	keys := propKeys(prev, next)
	var out []host.Mutation

	for _, k := range keys {
		ph, had := listenerOf(prev, k)
		if !had {
			continue
		}
		if nh, has := listenerOf(next, k); !has || nh != ph {
			out = append(out, host.Mutation{Op: host.OpRemoveListener, Node: node, Name: element.EventName(k), Handler: ph})
		}
	}

	for _, k := range keys {
		if _, had := attrOf(prev, k); !had {
			continue
		}
		if _, has := attrOf(next, k); !has {
			out = append(out, host.Mutation{Op: host.OpRemoveProperty, Node: node, Name: k})
		}
	}

	for _, k := range keys {
		nv, has := attrOf(next, k)
		if !has {
			continue
		}
		if pv, had := attrOf(prev, k); !had || !propsEqual(pv, nv) {
			out = append(out, host.Mutation{Op: host.OpSetProperty, Node: node, Name: k, Value: nv})
		}
	}

	for _, k := range keys {
		nh, has := listenerOf(next, k)
		if !has {
			continue
		}
		if ph, had := listenerOf(prev, k); !had || ph != nh {
			out = append(out, host.Mutation{Op: host.OpAddListener, Node: node, Name: element.EventName(k), Handler: nh})
		}
	}

	return out
}

// propKeys returns the sorted union of prop names, children excluded.
func propKeys(prev, next element.Props) []string {
	seen := make(map[string]struct{}, len(prev)+len(next))
	keys := make([]string, 0, len(prev)+len(next))
	for _, props := range []element.Props{prev, next} {
		for k := range props {
			if k == element.ChildrenKey {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// listenerOf returns the handler under an event prop.
func listenerOf(p element.Props, k string) (*element.Handler, bool) {
	if !element.IsEvent(k) {
		return nil, false
	}
	h, ok := p[k].(*element.Handler)
	return h, ok && h != nil
}

// attrOf returns the value of a plain attribute. Handlers under event props
// are not attributes.
func attrOf(p element.Props, k string) (any, bool) {
	v, ok := p[k]
	if !ok {
		return nil, false
	}
	if _, isHandler := v.(*element.Handler); isHandler && element.IsEvent(k) {
		return nil, false
	}
	return v, true
}

// propsEqual compares two prop values for equality.
func propsEqual(a, b any) bool {
	// Fast path for common types
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}

	// Fallback to reflect for complex types
	return reflect.DeepEqual(a, b)
}
