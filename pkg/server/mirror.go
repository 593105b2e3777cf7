package server

import (
	"sort"

	fberrors "github.com/vango-dev/fibers/internal/errors"
	"github.com/vango-dev/fibers/pkg/element"
	"github.com/vango-dev/fibers/pkg/host/memory"
	"github.com/vango-dev/fibers/pkg/protocol"
)

type mirrorNode struct {
	id       uint64
	tag      string
	text     bool
	attrs    map[string]any
	events   map[string]int
	parent   *mirrorNode
	children []*mirrorNode
}

func (n *mirrorNode) indexOf(child *mirrorNode) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

func (n *mirrorNode) detach() {
	if n.parent == nil {
		return
	}
	if i := n.parent.indexOf(n); i >= 0 {
		n.parent.children = append(n.parent.children[:i], n.parent.children[i+1:]...)
	}
	n.parent = nil
}

// Mirror rebuilds a host tree from a hub's frame stream. It is not safe for
// concurrent use.
type Mirror struct {
	nodes  map[uint64]*mirrorNode
	root   *mirrorNode
	seq    uint64
	synced bool
}

// NewMirror returns an empty mirror waiting for a snapshot frame.
func NewMirror() *Mirror {
	return &Mirror{nodes: make(map[uint64]*mirrorNode)}
}

// Seq returns the sequence number of the last applied frame.
func (m *Mirror) Seq() uint64 {
	return m.seq
}

// Synced reports whether a snapshot has been applied.
func (m *Mirror) Synced() bool {
	return m.synced
}

// ApplyBytes decodes and applies one encoded frame.
func (m *Mirror) ApplyBytes(data []byte) error {
	f, err := protocol.DecodeFrame(data)
	if err != nil {
		return err
	}
	return m.Apply(f)
}

// Apply applies one frame. An error frame is returned as a
// *protocol.ErrorMessage and leaves the tree untouched. A patches frame
// that does not directly follow the last applied sequence number fails
// with E031; the mirror then needs a new snapshot.
func (m *Mirror) Apply(f *protocol.Frame) error {
	switch f.Type {
	case protocol.FrameSnapshot:
		pf, err := protocol.DecodePatches(f.Payload)
		if err != nil {
			return err
		}
		m.nodes = make(map[uint64]*mirrorNode)
		m.root = nil
		m.synced = false
		if err := m.applyPatches(pf.Patches); err != nil {
			return err
		}
		m.seq = pf.Seq
		m.synced = true
		return nil

	case protocol.FramePatches:
		pf, err := protocol.DecodePatches(f.Payload)
		if err != nil {
			return err
		}
		if !m.synced {
			return fberrors.New("E031").WithDetail("patches frame before snapshot")
		}
		if pf.Seq != m.seq+1 {
			m.synced = false
			return fberrors.New("E031").WithDetailf("got seq %d, want %d", pf.Seq, m.seq+1)
		}
		if err := m.applyPatches(pf.Patches); err != nil {
			m.synced = false
			return err
		}
		m.seq = pf.Seq
		return nil

	case protocol.FrameError:
		em, err := protocol.DecodeErrorMessage(f.Payload)
		if err != nil {
			return err
		}
		return em

	default:
		return protocol.ErrInvalidFrameType
	}
}

func (m *Mirror) applyPatches(patches []protocol.Patch) error {
	for i := range patches {
		if err := m.applyPatch(&patches[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mirror) lookup(id uint64) (*mirrorNode, error) {
	n, ok := m.nodes[id]
	if !ok {
		return nil, fberrors.New("E032").WithDetailf("#%d", id)
	}
	return n, nil
}

func (m *Mirror) applyPatch(p *protocol.Patch) error {
	if p.Op == protocol.PatchCreate {
		n := &mirrorNode{
			id:     p.ID,
			tag:    p.Tag,
			text:   p.Kind == protocol.NodeText,
			attrs:  make(map[string]any),
			events: make(map[string]int),
		}
		m.nodes[p.ID] = n
		if m.root == nil {
			m.root = n
		}
		return nil
	}

	n, err := m.lookup(p.ID)
	if err != nil {
		return err
	}

	switch p.Op {
	case protocol.PatchAppend:
		parent, err := m.lookup(p.Parent)
		if err != nil {
			return err
		}
		n.detach()
		n.parent = parent
		parent.children = append(parent.children, n)

	case protocol.PatchInsertBefore:
		parent, err := m.lookup(p.Parent)
		if err != nil {
			return err
		}
		before, err := m.lookup(p.Before)
		if err != nil {
			return err
		}
		n.detach()
		i := parent.indexOf(before)
		if i < 0 {
			return fberrors.New("E032").WithDetailf("#%d is not a child of #%d", p.Before, p.Parent)
		}
		parent.children = append(parent.children, nil)
		copy(parent.children[i+1:], parent.children[i:])
		parent.children[i] = n
		n.parent = parent

	case protocol.PatchRemove:
		n.detach()
		m.forget(n)

	case protocol.PatchSetProp:
		n.attrs[p.Key] = p.Value

	case protocol.PatchRemoveProp:
		delete(n.attrs, p.Key)

	case protocol.PatchListen:
		n.events[p.Key]++

	case protocol.PatchUnlisten:
		if n.events[p.Key] <= 1 {
			delete(n.events, p.Key)
		} else {
			n.events[p.Key]--
		}

	default:
		return protocol.ErrInvalidPatchOp
	}
	return nil
}

func (m *Mirror) forget(n *mirrorNode) {
	delete(m.nodes, n.id)
	for _, c := range n.children {
		m.forget(c)
	}
}

// Tree returns the mirrored tree in the shape memory.Host.Snapshot
// produces. ok is false before the first snapshot.
func (m *Mirror) Tree() (t memory.Tree, ok bool) {
	if !m.synced || m.root == nil {
		return memory.Tree{}, false
	}
	return m.root.tree(), true
}

func (n *mirrorNode) tree() memory.Tree {
	t := memory.Tree{Tag: n.tag}
	if n.text {
		t.Text = element.ToString(n.attrs[element.NodeValueKey])
	} else if len(n.attrs) > 0 {
		t.Attrs = make(map[string]string, len(n.attrs))
		for k, v := range n.attrs {
			t.Attrs[k] = element.ToString(v)
		}
	}
	for event, count := range n.events {
		if count > 0 {
			t.Events = append(t.Events, event)
		}
	}
	sort.Strings(t.Events)
	for _, c := range n.children {
		t.Children = append(t.Children, c.tree())
	}
	return t
}
