package element

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	fberrors "github.com/vango-dev/fibers/internal/errors"
)

// Prop names with special meaning.
const (
	ChildrenKey  = "children"
	NodeValueKey = "nodeValue"
)

// TextTag is the tag carried by the text marker type.
const TextTag = "#text"

// ErrMalformed matches construction errors for children that are neither
// elements nor values convertible to text.
var ErrMalformed = fberrors.Code("E001")

// Kind is the element type discriminator.
type Kind uint8

const (
	KindHost Kind = iota // Host tag, e.g. "div"
	KindText             // Text marker
	KindFunc             // Function component
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindHost:
		return "Host"
	case KindText:
		return "Text"
	case KindFunc:
		return "Func"
	default:
		return "Unknown"
	}
}

// Type identifies what an element produces. Two types are the same logical
// node type exactly when they compare equal with ==.
type Type struct {
	Kind      Kind
	Tag       string
	Component *Component
}

// TextType is the type of text elements.
var TextType = Type{Kind: KindText, Tag: TextTag}

// Host returns the type of a host element with the given tag.
func Host(tag string) Type {
	return Type{Kind: KindHost, Tag: tag}
}

// String returns the tag, or the component name for function components.
func (t Type) String() string {
	if t.Kind == KindFunc && t.Component != nil {
		return t.Component.Name
	}
	return t.Tag
}

// Component is a function component: it renders its props into exactly one
// element. Components are compared by pointer identity.
type Component struct {
	Name   string
	render func(Props) *Element
}

// Func declares a function component.
func Func(name string, render func(Props) *Element) *Component {
	return &Component{Name: name, render: render}
}

// Render invokes the component. A nil result renders nothing.
func (c *Component) Render(props Props) *Element {
	return c.render(props)
}

// Type returns the element type of this component.
func (c *Component) Type() Type {
	return Type{Kind: KindFunc, Tag: c.Name, Component: c}
}

// Handler is an event handler prop value. Handlers are compared by pointer
// identity, so a handler recreated on every render is treated as changed.
type Handler struct {
	Fn func(payload any)
}

// On wraps fn as an event handler.
func On(fn func(payload any)) *Handler {
	return &Handler{Fn: fn}
}

// IsEvent returns true if the prop name designates an event handler.
// Case-insensitive to catch onclick, onClick, OnLoad, etc.
func IsEvent(name string) bool {
	return len(name) > 2 && strings.EqualFold(name[:2], "on")
}

// EventName returns the event name for an event prop ("onClick" → "click").
func EventName(prop string) string {
	return strings.ToLower(prop[2:])
}

// Props holds attributes, event handlers and children.
type Props map[string]any

// Children returns the children entry. It is nil only for props that were
// not produced by this package.
func (p Props) Children() []*Element {
	children, _ := p[ChildrenKey].([]*Element)
	return children
}

// Element is an immutable description of one position in the UI tree.
type Element struct {
	Type  Type
	Props Props
}

// Children returns the element's children.
func (e *Element) Children() []*Element {
	return e.Props.Children()
}

// Make builds an element. typ is a tag string, a Type, or a *Component.
// props is copied; children are normalized: elements are kept, slices are
// flattened, nil is skipped and primitive values are wrapped into text
// elements. Any other child is a malformed element error.
func Make(typ any, props Props, children ...any) (*Element, error) {
	return build(typ, props, children, 1)
}

// MustMake is like Make but panics on error.
func MustMake(typ any, props Props, children ...any) *Element {
	el, err := build(typ, props, children, 1)
	if err != nil {
		panic(err)
	}
	return el
}

// Text creates a text element holding value.
func Text(value any) *Element {
	return &Element{
		Type: TextType,
		Props: Props{
			NodeValueKey: value,
			ChildrenKey:  []*Element{},
		},
	}
}

// build does the work of Make. skip is the number of frames between build
// and the user call site, used to locate malformed children.
func build(typ any, props Props, children []any, skip int) (*Element, error) {
	var t Type
	switch v := typ.(type) {
	case string:
		t = Host(v)
	case Type:
		t = v
	case *Component:
		if v == nil {
			return nil, fberrors.New("E003").WithCaller(skip + 1).WithDetail("nil component")
		}
		t = v.Type()
	default:
		return nil, fberrors.New("E003").WithCaller(skip+1).WithDetailf("type has Go type %T", typ)
	}

	p := make(Props, len(props)+1)
	for k, v := range props {
		if k == ChildrenKey {
			continue
		}
		p[k] = v
	}

	kids := make([]*Element, 0, len(children))
	for i, child := range children {
		var ok bool
		kids, ok = appendChild(kids, child)
		if !ok {
			return nil, fberrors.New("E001").
				WithCaller(skip+1).
				WithDetailf("child %d of <%s> has type %T", i, t, child)
		}
	}
	p[ChildrenKey] = kids

	return &Element{Type: t, Props: p}, nil
}

// appendChild appends the normalized form of child to out.
func appendChild(out []*Element, child any) ([]*Element, bool) {
	switch v := child.(type) {
	case nil:
		return out, true
	case *Element:
		if v != nil {
			out = append(out, v)
		}
		return out, true
	case []*Element:
		for _, c := range v {
			if c != nil {
				out = append(out, c)
			}
		}
		return out, true
	case []any:
		for _, c := range v {
			var ok bool
			if out, ok = appendChild(out, c); !ok {
				return out, false
			}
		}
		return out, true
	}

	if value, ok := textValue(child); ok {
		return append(out, Text(value)), true
	}
	return out, false
}

// textValue reports whether v is a primitive that can become a text node,
// and the value to store under nodeValue. Named primitive types are stored
// as their underlying value unless they implement fmt.Stringer.
func textValue(v any) (any, bool) {
	switch val := v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return nil, false
		}
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), true
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return nil, false
}

// ToString converts a prop value to the string a host would display.
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
