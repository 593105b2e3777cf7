package element

// tag builds a host element for the tag helpers, panicking on malformed
// children.
func tag(name string, props Props, children []any) *Element {
	el, err := build(name, props, children, 2)
	if err != nil {
		panic(err)
	}
	return el
}

func Div(props Props, children ...any) *Element    { return tag("div", props, children) }
func Span(props Props, children ...any) *Element   { return tag("span", props, children) }
func P(props Props, children ...any) *Element      { return tag("p", props, children) }
func A(props Props, children ...any) *Element      { return tag("a", props, children) }
func B(props Props, children ...any) *Element      { return tag("b", props, children) }
func H1(props Props, children ...any) *Element     { return tag("h1", props, children) }
func Ul(props Props, children ...any) *Element     { return tag("ul", props, children) }
func Li(props Props, children ...any) *Element     { return tag("li", props, children) }
func Button(props Props, children ...any) *Element { return tag("button", props, children) }
func Input(props Props, children ...any) *Element  { return tag("input", props, children) }

// Render creates an element for a function component.
func Render(c *Component, props Props, children ...any) *Element {
	el, err := build(c, props, children, 1)
	if err != nil {
		panic(err)
	}
	return el
}
