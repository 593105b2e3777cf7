package render

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vango-dev/fibers/pkg/host/memory"
)

func text(s string) memory.Tree {
	return memory.Tree{Tag: textTag, Text: s}
}

func el(tag string, attrs map[string]string, children ...memory.Tree) memory.Tree {
	return memory.Tree{Tag: tag, Attrs: attrs, Children: children}
}

func TestRendererCompact(t *testing.T) {
	tests := []struct {
		name string
		tree memory.Tree
		want string
	}{
		{
			name: "empty element",
			tree: el("div", nil),
			want: "<div></div>",
		},
		{
			name: "text child",
			tree: el("p", nil, text("hello")),
			want: "<p>hello</p>",
		},
		{
			name: "sorted attributes",
			tree: el("a", map[string]string{"id": "x", "class": "btn", "href": "/"}),
			want: `<a class="btn" href="/" id="x"></a>`,
		},
		{
			name: "void element",
			tree: el("input", map[string]string{"type": "text"}),
			want: `<input type="text">`,
		},
		{
			name: "boolean attributes",
			tree: el("input", map[string]string{"disabled": "true", "checked": "false"}),
			want: `<input disabled>`,
		},
		{
			name: "nested",
			tree: el("ul", nil, el("li", nil, text("a")), el("li", nil, text("b"))),
			want: "<ul><li>a</li><li>b</li></ul>",
		},
		{
			name: "events",
			tree: memory.Tree{Tag: "button", Events: []string{"click", "focus"}, Children: []memory.Tree{text("go")}},
			want: `<button data-on="click,focus">go</button>`,
		},
	}

	r := NewRenderer(Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.String(tt.tree)
			if err != nil {
				t.Fatalf("String() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRendererEscapes(t *testing.T) {
	tree := el("div", map[string]string{"title": `a "b" <c>`}, text("<script>&"))
	got, err := NewRenderer(Config{}).String(tree)
	if err != nil {
		t.Fatal(err)
	}
	want := `<div title="a &quot;b&quot; &lt;c&gt;">&lt;script&gt;&amp;</div>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRendererPretty(t *testing.T) {
	tree := el("div", nil,
		el("p", nil, text("hi")),
		el("span", nil, text("x")),
		el("br", nil),
	)
	got, err := NewRenderer(Config{Pretty: true}).String(tree)
	if err != nil {
		t.Fatal(err)
	}
	want := "<div>\n" +
		"  <p>hi</p>\n" +
		"  <span>x</span>\n" +
		"  <br>\n" +
		"</div>\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestRendererOmitEvents(t *testing.T) {
	tree := memory.Tree{Tag: "button", Events: []string{"click"}}
	got, _ := NewRenderer(Config{OmitEvents: true}).String(tree)
	if got != "<button></button>" {
		t.Errorf("got %q", got)
	}
}

func TestChildrenSkipsContainer(t *testing.T) {
	root := el("#root", nil, el("b", nil), text("t"))
	var buf bytes.Buffer
	if err := NewRenderer(Config{}).Children(&buf, root); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "<b></b>t" {
		t.Errorf("Children() = %q", buf.String())
	}
	if got := HTML(root); got != "<b></b>t" {
		t.Errorf("HTML() = %q", got)
	}
}

type failWriter struct{ n int }

func (f *failWriter) Write(p []byte) (int, error) {
	f.n++
	return 0, errors.New("disk full")
}

func TestWriteStopsOnFirstError(t *testing.T) {
	w := &failWriter{}
	err := NewRenderer(Config{}).Write(w, el("div", nil, el("p", nil)))
	if err == nil || err.Error() != "disk full" {
		t.Fatalf("Write() error = %v", err)
	}
	if w.n != 1 {
		t.Errorf("writes after failure = %d, want 1", w.n)
	}
}

func TestRenderCommittedHostTree(t *testing.T) {
	h := memory.New()
	root := h.Container("#root")
	// An empty container renders as nothing.
	if got := HTML(h.Snapshot(root)); got != "" {
		t.Errorf("HTML(empty) = %q", got)
	}
}
