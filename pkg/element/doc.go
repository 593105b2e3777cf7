// Package element provides the immutable description of desired UI shape.
//
// An Element pairs a Type with Props. Props always carries a "children"
// entry holding the element's children as []*Element; scalar children are
// wrapped into text elements when the element is built, so the children of
// an element are never a bare value.
//
// # Types
//
// Type is a small comparable variant:
//
//	element.Host("div")        // host tag
//	element.TextType           // text marker, Props["nodeValue"] holds the text
//	counter.Type()             // function component (*Component identity)
//
// # Building
//
//	el, err := element.Make("div", element.Props{"id": "foo"},
//	    element.MustMake("a", nil, "bar"),
//	    element.MustMake("b", nil),
//	)
//
// Tag helpers (Div, Span, ...) panic on malformed children, like MustMake.
//
// # Documents
//
// Decode reads an element tree from a YAML or JSON document, resolving
// function components by name from a Registry.
package element
