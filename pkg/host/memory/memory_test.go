package memory

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/fibers/pkg/element"
	"github.com/vango-dev/fibers/pkg/host"
)

func mustCreate(t *testing.T, h *Host, typ element.Type, props element.Props) *Node {
	t.Helper()
	n, err := h.CreateNode(typ, props)
	if err != nil {
		t.Fatalf("CreateNode(%v) error = %v", typ, err)
	}
	return n.(*Node)
}

func TestCreateNodeInitializesProps(t *testing.T) {
	h := New(WithLog(0))
	clicked := element.On(func(any) {})
	props := element.Props{
		"id":      "go",
		"onClick": clicked,
		"title":   "x",
	}
	props[element.ChildrenKey] = []*element.Element{}
	n := mustCreate(t, h, element.Host("button"), props)

	if n.Attrs["id"] != "go" || n.Attrs["title"] != "x" {
		t.Errorf("Attrs = %v", n.Attrs)
	}
	if _, ok := n.Attrs[element.ChildrenKey]; ok {
		t.Error("children must not become an attribute")
	}
	if got := n.Listeners["click"]; len(got) != 1 || got[0] != clicked {
		t.Errorf("Listeners[click] = %v", got)
	}
	if n.Parent != nil {
		t.Error("created node must be detached")
	}
	if len(h.Log()) != 0 {
		t.Error("CreateNode must not log mutations")
	}
	if h.Created() != 1 {
		t.Errorf("Created() = %d, want 1", h.Created())
	}
}

func TestCreateNodeRejectsComponents(t *testing.T) {
	h := New()
	c := element.Func("C", func(element.Props) *element.Element { return nil })
	if _, err := h.CreateNode(c.Type(), nil); !errors.Is(err, ErrNoHostNode) {
		t.Errorf("error = %v, want ErrNoHostNode", err)
	}
}

func logOps(h *Host) []string {
	var ops []string
	for _, m := range h.Log() {
		ops = append(ops, m.Op.String())
	}
	return ops
}

func TestTreeOperations(t *testing.T) {
	h := New(WithLog(0))
	root := h.Container("root")
	a := mustCreate(t, h, element.Host("a"), nil)
	b := mustCreate(t, h, element.Host("b"), nil)
	c := mustCreate(t, h, element.Host("c"), nil)

	if err := h.AppendChild(root, a); err != nil {
		t.Fatal(err)
	}
	if err := h.AppendChild(root, c); err != nil {
		t.Fatal(err)
	}
	if err := h.InsertBefore(root, b, c); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, h.Preorder(root)); diff != "" {
		t.Errorf("Preorder mismatch (-want +got):\n%s", diff)
	}

	// Moving an attached node detaches it from its old position first.
	if err := h.AppendChild(root, a); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b", "c", "a"}, h.Preorder(root)); diff != "" {
		t.Errorf("Preorder after move (-want +got):\n%s", diff)
	}

	if err := h.RemoveChild(a, b); !errors.Is(err, ErrNotChild) {
		t.Errorf("remove from wrong parent error = %v, want ErrNotChild", err)
	}
	if err := h.RemoveChild(root, b); err != nil {
		t.Fatal(err)
	}
	if b.Parent != nil {
		t.Error("removed node should have no parent")
	}
	// A removed node is released, so it cannot be removed twice.
	if err := h.RemoveChild(root, b); !errors.Is(err, ErrForeignNode) {
		t.Errorf("second remove error = %v, want ErrForeignNode", err)
	}

	// Failed mutations are not logged.
	want := []string{"Append", "Append", "InsertBefore", "Append", "Remove"}
	if diff := cmp.Diff(want, logOps(h)); diff != "" {
		t.Errorf("Log ops mismatch (-want +got):\n%s", diff)
	}
}

func TestRemovedSubtreeReleased(t *testing.T) {
	h := New()
	root := h.Container("root")
	list := mustCreate(t, h, element.Host("ul"), nil)
	item := mustCreate(t, h, element.Host("li"), nil)
	text := mustCreate(t, h, element.TextType, element.Props{element.NodeValueKey: "x"})
	spare := mustCreate(t, h, element.Host("p"), nil)

	err := h.ApplyBatch([]host.Mutation{
		{Op: host.OpAppend, Parent: item, Node: text},
		{Op: host.OpAppend, Parent: list, Node: item},
		{Op: host.OpAppend, Parent: root, Node: list},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := h.Retained(); got != 5 {
		t.Fatalf("Retained() = %d, want 5", got)
	}

	// Removed and re-attached in one batch: nothing is released.
	err = h.ApplyBatch([]host.Mutation{
		{Op: host.OpRemove, Parent: root, Node: list},
		{Op: host.OpAppend, Parent: root, Node: list},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := h.Retained(); got != 5 {
		t.Errorf("Retained() after move = %d, want 5", got)
	}

	if err := h.RemoveChild(root, list); err != nil {
		t.Fatal(err)
	}
	if got := h.Retained(); got != 2 {
		t.Errorf("Retained() after remove = %d, want 2 (root and the unattached p)", got)
	}
	for _, n := range []*Node{list, item, text} {
		if _, ok := h.Lookup(n.ID); ok {
			t.Errorf("node %d <%s> still retained", n.ID, n.Tag())
		}
	}
	if err := h.AppendChild(root, spare); err != nil {
		t.Errorf("unattached node should stay usable: %v", err)
	}
	if err := h.AppendChild(root, item); !errors.Is(err, ErrForeignNode) {
		t.Errorf("reusing a released node error = %v, want ErrForeignNode", err)
	}
}

func TestLogOptIn(t *testing.T) {
	h := New()
	root := h.Container("root")
	a := mustCreate(t, h, element.Host("a"), nil)
	if err := h.AppendChild(root, a); err != nil {
		t.Fatal(err)
	}
	if got := h.Log(); len(got) != 0 {
		t.Errorf("Log() without WithLog = %v, want empty", got)
	}

	h = New(WithLog(3))
	root = h.Container("root")
	a = mustCreate(t, h, element.Host("a"), nil)
	if err := h.AppendChild(root, a); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"k1", "k2", "k3"} {
		if err := h.SetProperty(a, k, 1); err != nil {
			t.Fatal(err)
		}
	}
	var names []string
	for _, m := range h.Log() {
		names = append(names, m.Name)
	}
	if diff := cmp.Diff([]string{"k1", "k2", "k3"}, names); diff != "" {
		t.Errorf("bounded Log() mismatch (-want +got):\n%s", diff)
	}
}

func TestCycleRejected(t *testing.T) {
	h := New()
	root := h.Container("root")
	a := mustCreate(t, h, element.Host("a"), nil)
	if err := h.AppendChild(root, a); err != nil {
		t.Fatal(err)
	}
	if err := h.AppendChild(a, root); !errors.Is(err, ErrCycle) {
		t.Errorf("error = %v, want ErrCycle", err)
	}
}

func TestForeignNodeRejected(t *testing.T) {
	h := New()
	other := New()
	root := h.Container("root")
	stranger := other.Container("x")

	if err := h.AppendChild(root, stranger); !errors.Is(err, ErrForeignNode) {
		t.Errorf("error = %v, want ErrForeignNode", err)
	}
	if err := h.SetProperty("not a node", "a", 1); !errors.Is(err, ErrForeignNode) {
		t.Errorf("error = %v, want ErrForeignNode", err)
	}
}

func TestProperties(t *testing.T) {
	h := New()
	n := mustCreate(t, h, element.Host("div"), element.Props{"a": 1})

	if err := h.SetProperty(n, "b", 2); err != nil {
		t.Fatal(err)
	}
	if err := h.RemoveProperty(n, "a"); err != nil {
		t.Fatal(err)
	}
	want := Tree{Tag: "div", Attrs: map[string]string{"b": "2"}}
	if diff := cmp.Diff(want, h.Snapshot(n)); diff != "" {
		t.Errorf("Snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestListeners(t *testing.T) {
	h := New()
	n := mustCreate(t, h, element.Host("button"), nil)
	calls := 0
	handler := element.On(func(any) { calls++ })

	if err := h.AddEventListener(n, "click", handler); err != nil {
		t.Fatal(err)
	}
	if got := h.Dispatch(n, "click", nil); got != 1 || calls != 1 {
		t.Errorf("Dispatch ran %d handlers, calls = %d", got, calls)
	}
	if err := h.RemoveEventListener(n, "click", handler); err != nil {
		t.Fatal(err)
	}
	if got := h.Dispatch(n, "click", nil); got != 0 {
		t.Errorf("Dispatch after remove ran %d handlers", got)
	}
	// Removing an unknown handler is a no-op.
	if err := h.RemoveEventListener(n, "click", handler); err != nil {
		t.Errorf("RemoveEventListener(unknown) error = %v", err)
	}
}

func TestApplyBatchIsAtomic(t *testing.T) {
	h := New(WithLog(0))
	root := h.Container("root")
	a := mustCreate(t, h, element.Host("a"), element.Props{"x": "1"})
	b := mustCreate(t, h, element.Host("b"), nil)
	if err := h.AppendChild(root, a); err != nil {
		t.Fatal(err)
	}
	handler := element.On(nil)
	if err := h.AddEventListener(a, "click", handler); err != nil {
		t.Fatal(err)
	}
	before := h.Snapshot(root)
	logLen := len(h.Log())

	var observed int
	h.Observe(func([]host.Mutation) { observed++ })

	boom := errors.New("boom")
	h.FailMutation(func(m host.Mutation) error {
		if m.Op == host.OpSetProperty && m.Name == "fail" {
			return boom
		}
		return nil
	})

	err := h.ApplyBatch([]host.Mutation{
		{Op: host.OpAppend, Parent: root, Node: b},
		{Op: host.OpSetProperty, Node: a, Name: "x", Value: "2"},
		{Op: host.OpRemoveProperty, Node: a, Name: "x"},
		{Op: host.OpRemoveListener, Node: a, Name: "click", Handler: handler},
		{Op: host.OpInsertBefore, Parent: root, Node: b, Before: a},
		{Op: host.OpRemove, Parent: root, Node: a},
		{Op: host.OpSetProperty, Node: b, Name: "fail", Value: true},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("ApplyBatch error = %v, want boom", err)
	}
	if diff := cmp.Diff(before, h.Snapshot(root)); diff != "" {
		t.Errorf("tree changed after failed batch (-before +after):\n%s", diff)
	}
	if len(h.Log()) != logLen {
		t.Error("failed batch must not be logged")
	}
	if observed != 0 {
		t.Error("observers must not see failed batches")
	}
	if b.Parent != nil {
		t.Error("b should be detached again")
	}
}

func TestObserversSeeBatches(t *testing.T) {
	h := New()
	root := h.Container("root")
	a := mustCreate(t, h, element.Host("a"), nil)

	var got [][]host.Mutation
	h.Observe(func(batch []host.Mutation) { got = append(got, batch) })

	batch := []host.Mutation{
		{Op: host.OpAppend, Parent: root, Node: a},
		{Op: host.OpSetProperty, Node: a, Name: "k", Value: "v"},
	}
	if err := h.ApplyBatch(batch); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || len(got[0]) != 2 {
		t.Errorf("observer batches = %v", got)
	}
}

func TestLookupAndResetLog(t *testing.T) {
	h := New(WithLog(0))
	root := h.Container("root")
	if n, ok := h.Lookup(root.ID); !ok || n != root {
		t.Error("Lookup should find the container")
	}
	a := mustCreate(t, h, element.TextType, element.Props{element.NodeValueKey: "hi"})
	if err := h.AppendChild(root, a); err != nil {
		t.Fatal(err)
	}
	if a.Text() != "hi" || !a.IsText() {
		t.Errorf("text node = %+v", a)
	}
	h.ResetLog()
	if len(h.Log()) != 0 || h.Created() != 0 {
		t.Error("ResetLog should clear log and created counter")
	}
}
