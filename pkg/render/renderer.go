package render

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/vango-dev/fibers/pkg/host/memory"
)

const textTag = "#text"

// EventsAttr lists a node's attached event names, comma separated.
const EventsAttr = "data-on"

// Config controls the HTML output.
type Config struct {
	// Pretty puts block elements on their own lines.
	Pretty bool

	// Indent is the per-level indentation used when Pretty is set.
	// Default: two spaces.
	Indent string

	// OmitEvents drops the data-on attribute.
	OmitEvents bool
}

// Renderer turns memory.Tree snapshots into HTML.
type Renderer struct {
	config Config
}

// NewRenderer returns a Renderer for config.
func NewRenderer(config Config) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{config: config}
}

// String renders t, including t's own element.
func (r *Renderer) String(t memory.Tree) (string, error) {
	var buf bytes.Buffer
	if err := r.Write(&buf, t); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write renders t to w.
func (r *Renderer) Write(w io.Writer, t memory.Tree) error {
	sw := &stickyWriter{w: w}
	r.node(sw, t, 0)
	return sw.err
}

// Children renders t's children without t itself. This is the HTML of a
// container's content.
func (r *Renderer) Children(w io.Writer, t memory.Tree) error {
	sw := &stickyWriter{w: w}
	for _, c := range t.Children {
		r.node(sw, c, 0)
	}
	return sw.err
}

// HTML renders t's children with the default config.
func HTML(t memory.Tree) string {
	var buf bytes.Buffer
	_ = NewRenderer(Config{}).Children(&buf, t)
	return buf.String()
}

func (r *Renderer) node(w *stickyWriter, t memory.Tree, depth int) {
	if t.Tag == textTag {
		w.str(EscapeText(t.Text))
		return
	}

	block := r.config.Pretty && !isInline(t.Tag)
	if block {
		r.indent(w, depth)
	}

	w.str("<")
	w.str(t.Tag)
	r.attrs(w, t)
	w.str(">")

	if voidElements[t.Tag] {
		if block {
			w.str("\n")
		}
		return
	}

	// Children of a block element go on their own lines only when at least
	// one of them is itself a block.
	nested := block && hasBlockChild(t)
	if nested {
		w.str("\n")
	}
	for _, c := range t.Children {
		if nested && isInline(c.Tag) {
			r.indent(w, depth+1)
			r.node(w, c, depth+1)
			w.str("\n")
			continue
		}
		r.node(w, c, depth+1)
	}
	if nested {
		r.indent(w, depth)
	}

	w.str("</")
	w.str(t.Tag)
	w.str(">")
	if block {
		w.str("\n")
	}
}

func (r *Renderer) attrs(w *stickyWriter, t memory.Tree) {
	names := make([]string, 0, len(t.Attrs))
	for name := range t.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := t.Attrs[name]
		if booleanAttrs[name] {
			if value == "" || value == "false" {
				continue
			}
			w.str(" ")
			w.str(name)
			continue
		}
		w.str(" ")
		w.str(name)
		w.str(`="`)
		w.str(EscapeAttr(value))
		w.str(`"`)
	}

	if len(t.Events) > 0 && !r.config.OmitEvents {
		w.str(" " + EventsAttr + `="`)
		w.str(EscapeAttr(strings.Join(t.Events, ",")))
		w.str(`"`)
	}
}

func (r *Renderer) indent(w *stickyWriter, depth int) {
	for i := 0; i < depth; i++ {
		w.str(r.config.Indent)
	}
}

func hasBlockChild(t memory.Tree) bool {
	for _, c := range t.Children {
		if !isInline(c.Tag) {
			return true
		}
	}
	return false
}

// stickyWriter keeps the first write error and ignores later writes.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) str(v string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, v)
}
