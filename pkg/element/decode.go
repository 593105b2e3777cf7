package element

import (
	"os"

	"gopkg.in/yaml.v3"

	fberrors "github.com/vango-dev/fibers/internal/errors"
)

// Registry resolves function components named in element documents.
type Registry map[string]*Component

// document is the YAML/JSON shape of one element.
//
//	type: div
//	props: {id: foo}
//	children:
//	  - type: a
//	    children: [bar]
//	  - component: Clock
type document struct {
	Type      string         `yaml:"type"`
	Component string         `yaml:"component"`
	Props     map[string]any `yaml:"props"`
	Children  []docChild     `yaml:"children"`
}

// docChild is either a nested document or a scalar that becomes text.
type docChild struct {
	scalar any
	doc    *document
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *docChild) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		return n.Decode(&c.scalar)
	}
	c.doc = new(document)
	return n.Decode(c.doc)
}

// Decode parses a YAML or JSON element document.
func Decode(data []byte, reg Registry) (*Element, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fberrors.New("E004").Wrap(err)
	}
	return doc.element(reg, "$")
}

// DecodeFile reads and parses an element document from path.
func DecodeFile(path string, reg Registry) (*Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fberrors.New("E004").WithDetailf("read %s", path).Wrap(err)
	}
	return Decode(data, reg)
}

func (d *document) element(reg Registry, path string) (*Element, error) {
	var typ any
	switch {
	case d.Component != "":
		c, ok := reg[d.Component]
		if !ok {
			return nil, fberrors.New("E002").WithDetailf("%q at %s", d.Component, path)
		}
		typ = c
	case d.Type == TextTag:
		typ = TextType
	case d.Type != "":
		typ = d.Type
	default:
		return nil, fberrors.New("E003").WithDetailf("missing type or component at %s", path)
	}

	children := make([]any, 0, len(d.Children))
	for i, c := range d.Children {
		if c.doc == nil {
			children = append(children, c.scalar)
			continue
		}
		child, err := c.doc.element(reg, path+".children["+ToString(i)+"]")
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	return build(typ, d.Props, children, 1)
}
