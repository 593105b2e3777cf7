package element

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	fberrors "github.com/vango-dev/fibers/internal/errors"
)

func TestDecodeYAML(t *testing.T) {
	doc := `
type: div
props:
  id: foo
children:
  - type: a
    children: [bar]
  - type: b
  - 42
`
	el, err := Decode([]byte(doc), nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if el.Type != Host("div") || el.Props["id"] != "foo" {
		t.Fatalf("root = %+v", el)
	}
	kids := el.Children()
	if len(kids) != 3 {
		t.Fatalf("len(children) = %d, want 3", len(kids))
	}
	if kids[0].Children()[0].Props[NodeValueKey] != "bar" {
		t.Errorf("a text = %v, want bar", kids[0].Children()[0].Props[NodeValueKey])
	}
	if kids[2].Type != TextType || kids[2].Props[NodeValueKey] != 42 {
		t.Errorf("scalar child = %+v, want text 42", kids[2])
	}
}

func TestDecodeJSONWithComponent(t *testing.T) {
	label := Func("Label", func(p Props) *Element {
		return Span(nil, p["text"])
	})
	doc := `{"type": "section", "children": [{"component": "Label", "props": {"text": "hi"}}]}`

	el, err := Decode([]byte(doc), Registry{"Label": label})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	child := el.Children()[0]
	if child.Type != label.Type() {
		t.Errorf("child Type = %+v, want Label component", child.Type)
	}
	if child.Props["text"] != "hi" {
		t.Errorf("child props = %v", child.Props)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code string
	}{
		{"syntax", "type: [", "E004"},
		{"missing type", "props: {a: 1}", "E003"},
		{"unknown component", "type: div\nchildren:\n  - component: Nope", "E002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc), Registry{})
			if !errors.Is(err, fberrors.Code(tt.code)) {
				t.Errorf("Decode() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.yaml")
	if err := os.WriteFile(path, []byte("type: p\nchildren: [hello]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	el, err := DecodeFile(path, nil)
	if err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	if el.Type.Tag != "p" {
		t.Errorf("Tag = %q, want p", el.Type.Tag)
	}

	if _, err := DecodeFile(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Error("DecodeFile(missing) should fail")
	}
}
