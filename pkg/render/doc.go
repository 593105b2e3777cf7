// Package render serializes committed host trees to HTML.
//
// The renderer works on memory.Tree snapshots, so it never touches the
// live host. Text and attribute values are escaped. Void elements get no
// closing tag. Boolean attributes render as a bare name when true and are
// dropped when false. Attached event listeners are listed in a single
// data-on attribute so a reader can see which nodes are interactive.
//
// # Basic Usage
//
//	tree := h.Snapshot(container)
//	html, err := render.NewRenderer(render.Config{Pretty: true}).String(tree)
//
// Use Children to render a container's content without the container
// element itself.
package render
