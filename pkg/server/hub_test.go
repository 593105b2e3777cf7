package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	fberrors "github.com/vango-dev/fibers/internal/errors"
	"github.com/vango-dev/fibers/pkg/element"
	"github.com/vango-dev/fibers/pkg/engine"
	"github.com/vango-dev/fibers/pkg/host/memory"
	"github.com/vango-dev/fibers/pkg/idle"
	"github.com/vango-dev/fibers/pkg/protocol"
)

type fakeSink struct {
	frames [][]byte
	reject bool
	closed bool
}

func (s *fakeSink) Send(frame []byte) bool {
	if s.reject {
		return false
	}
	s.frames = append(s.frames, frame)
	return true
}

func (s *fakeSink) Close() { s.closed = true }

type fixture struct {
	t     *testing.T
	host  *memory.Host
	root  *memory.Node
	sched *idle.Manual
	eng   *engine.Engine
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, opts ...engine.Option) *fixture {
	t.Helper()
	h := memory.New()
	sched := idle.NewManual()
	opts = append([]engine.Option{engine.WithLogger(discardLogger())}, opts...)
	return &fixture{
		t:     t,
		host:  h,
		root:  h.Container("root"),
		sched: sched,
		eng:   engine.New(h, sched, opts...),
	}
}

func (f *fixture) render(el *element.Element) {
	f.t.Helper()
	if err := f.eng.Render(el, f.root); err != nil {
		f.t.Fatalf("Render() error: %v", err)
	}
	f.sched.Drain(idle.Unbounded)
	if err := f.eng.Err(); err != nil {
		f.t.Fatalf("render pass failed: %v", err)
	}
}

func (f *fixture) hub(opts ...HubOption) *Hub {
	opts = append([]HubOption{WithHubLogger(discardLogger())}, opts...)
	return NewHub(f.host, f.root, opts...)
}

// sync applies every frame in s to m and checks m against the host tree.
func (f *fixture) sync(m *Mirror, s *fakeSink) {
	f.t.Helper()
	for _, frame := range s.frames {
		if err := m.ApplyBytes(frame); err != nil {
			f.t.Fatalf("mirror apply: %v", err)
		}
	}
	s.frames = nil
	got, ok := m.Tree()
	if !ok {
		f.t.Fatal("mirror not synced")
	}
	if diff := cmp.Diff(f.host.Snapshot(f.root), got); diff != "" {
		f.t.Fatalf("mirror differs from host (-host +mirror):\n%s", diff)
	}
}

func page(title string, items []string, clicks *element.Handler) *element.Element {
	lis := make([]any, 0, len(items))
	for _, it := range items {
		lis = append(lis, element.Li(nil, it))
	}
	props := element.Props{"class": "page"}
	if clicks != nil {
		props["onClick"] = clicks
	}
	return element.Div(props,
		element.H1(nil, title),
		element.Ul(element.Props{"data-count": len(items)}, lis...),
	)
}

func TestHubSnapshotThenPatches(t *testing.T) {
	f := newFixture(t)
	f.render(page("one", []string{"a", "b"}, nil))

	hub := f.hub()
	sink := &fakeSink{}
	if err := hub.Join(context.Background(), sink); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if len(sink.frames) != 1 {
		t.Fatalf("frames after join = %d, want 1", len(sink.frames))
	}
	frame, err := protocol.DecodeFrame(sink.frames[0])
	if err != nil {
		t.Fatal(err)
	}
	if frame.Type != protocol.FrameSnapshot {
		t.Fatalf("first frame = %v, want Snapshot", frame.Type)
	}

	m := NewMirror()
	f.sync(m, sink)

	f.render(page("two", []string{"a", "c", "d"}, nil))
	if len(sink.frames) != 1 {
		t.Fatalf("staged commit produced %d frames, want 1", len(sink.frames))
	}
	f.sync(m, sink)
	if m.Seq() != 1 || hub.Seq() != 1 {
		t.Errorf("seq: mirror %d hub %d, want 1", m.Seq(), hub.Seq())
	}

	f.render(page("two", []string{"z"}, element.On(func(any) {})))
	f.sync(m, sink)
}

func TestHubAnnouncesBeforeAttach(t *testing.T) {
	f := newFixture(t)
	hub := f.hub()
	sink := &fakeSink{}
	if err := hub.Join(context.Background(), sink); err != nil {
		t.Fatal(err)
	}
	sink.frames = nil

	f.render(element.Div(element.Props{"id": "x"}, "hi"))
	if len(sink.frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(sink.frames))
	}
	frame, _ := protocol.DecodeFrame(sink.frames[0])
	pf, err := protocol.DecodePatches(frame.Payload)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, p := range pf.Patches {
		got = append(got, p.Op.String())
	}
	want := []string{"Create", "SetProp", "Append", "Create", "SetProp", "Append"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("patch ops (-want +got):\n%s", diff)
	}
}

func TestMirrorMatchesHostInBothCommitModes(t *testing.T) {
	renders := []*element.Element{
		page("a", []string{"1", "2", "3"}, nil),
		page("b", []string{"1"}, element.On(func(any) {})),
		element.Span(nil, "replaced"),
		page("c", nil, nil),
		page("d", []string{"x", "y"}, element.On(func(any) {})),
	}

	for _, mode := range []engine.CommitMode{engine.CommitStaged, engine.CommitEager} {
		t.Run(mode.String(), func(t *testing.T) {
			f := newFixture(t, engine.WithCommitMode(mode))
			hub := f.hub()
			sink := &fakeSink{}
			if err := hub.Join(context.Background(), sink); err != nil {
				t.Fatal(err)
			}
			m := NewMirror()
			for _, el := range renders {
				f.render(el)
				f.sync(m, sink)
			}
		})
	}
}

func TestHubIgnoresOtherContainers(t *testing.T) {
	f := newFixture(t)
	hub := f.hub()
	sink := &fakeSink{}
	if err := hub.Join(context.Background(), sink); err != nil {
		t.Fatal(err)
	}
	sink.frames = nil

	other := f.host.Container("other")
	if err := f.eng.Render(element.Div(nil, "elsewhere"), other); err != nil {
		t.Fatal(err)
	}
	f.sched.Drain(idle.Unbounded)

	if len(sink.frames) != 0 {
		t.Errorf("frames = %d, want 0", len(sink.frames))
	}
	if hub.Seq() != 0 {
		t.Errorf("seq = %d, want 0", hub.Seq())
	}
}

func TestHubDropsRejectingSink(t *testing.T) {
	f := newFixture(t)
	hub := f.hub()

	slow := &fakeSink{}
	fast := &fakeSink{}
	for _, s := range []*fakeSink{slow, fast} {
		if err := hub.Join(context.Background(), s); err != nil {
			t.Fatal(err)
		}
	}
	if hub.Viewers() != 2 {
		t.Fatalf("viewers = %d, want 2", hub.Viewers())
	}

	slow.reject = true
	f.render(element.Div(nil))

	if !slow.closed {
		t.Error("rejecting sink was not closed")
	}
	if hub.Viewers() != 1 {
		t.Errorf("viewers = %d, want 1", hub.Viewers())
	}
	if len(fast.frames) != 2 {
		t.Errorf("fast sink frames = %d, want 2", len(fast.frames))
	}

	rejected := &fakeSink{reject: true}
	hub.Join(context.Background(), rejected)
	if !rejected.closed || hub.Viewers() != 1 {
		t.Error("sink rejecting its snapshot should not be attached")
	}
}

func TestHubErrorFrame(t *testing.T) {
	f := newFixture(t)
	f.render(element.Div(nil, "ok"))

	hub := f.hub()
	sink := &fakeSink{}
	hub.Join(context.Background(), sink)
	m := NewMirror()
	f.sync(m, sink)
	before, _ := m.Tree()

	hub.Error(fberrors.New("E010").WithDetail("<div>"))
	hub.Error(nil)
	if len(sink.frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(sink.frames))
	}

	err := m.ApplyBytes(sink.frames[0])
	var em *protocol.ErrorMessage
	if !errors.As(err, &em) {
		t.Fatalf("Apply(error frame) = %v, want *protocol.ErrorMessage", err)
	}
	if em.Code != "E010" {
		t.Errorf("code = %q, want E010", em.Code)
	}
	after, _ := m.Tree()
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("error frame changed the tree:\n%s", diff)
	}
	if hub.Seq() != 0 {
		t.Errorf("error frame advanced seq to %d", hub.Seq())
	}
}

func TestHubJoinThroughExec(t *testing.T) {
	f := newFixture(t)
	queue := make(chan func(), 4)
	hub := f.hub(WithExec(func(fn func()) bool {
		queue <- fn
		return true
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := hub.Join(ctx, &fakeSink{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Join() with cancelled ctx = %v", err)
	}
	(<-queue)()

	done := make(chan error, 1)
	sink := &fakeSink{}
	go func() { done <- hub.Join(context.Background(), sink) }()
	(<-queue)()
	if err := <-done; err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if len(sink.frames) != 1 {
		t.Errorf("snapshot frames = %d, want 1", len(sink.frames))
	}
}

func TestHubJoinRejectedExec(t *testing.T) {
	f := newFixture(t)
	hub := f.hub(WithExec(func(func()) bool { return false }))
	if err := hub.Join(context.Background(), &fakeSink{}); !errors.Is(err, ErrExecRejected) {
		t.Fatalf("Join() = %v, want ErrExecRejected", err)
	}
}

func TestMirrorSequenceGap(t *testing.T) {
	f := newFixture(t)
	hub := f.hub()
	sink := &fakeSink{}
	hub.Join(context.Background(), sink)

	m := NewMirror()
	if err := m.ApplyBytes(sink.frames[0]); err != nil {
		t.Fatal(err)
	}
	sink.frames = nil

	f.render(element.Div(nil, "one"))
	f.render(element.Div(nil, "two"))
	if len(sink.frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(sink.frames))
	}

	err := m.ApplyBytes(sink.frames[1])
	if !errors.Is(err, fberrors.Code("E031")) {
		t.Fatalf("Apply(out of order) = %v, want E031", err)
	}
	if m.Synced() {
		t.Error("mirror still synced after a gap")
	}
	if _, ok := m.Tree(); ok {
		t.Error("Tree() ok after a gap")
	}
}

func TestMirrorRejectsPatchesBeforeSnapshot(t *testing.T) {
	pf := &protocol.PatchesFrame{Seq: 1}
	err := NewMirror().Apply(pf.Frame(protocol.FramePatches))
	if !errors.Is(err, fberrors.Code("E031")) {
		t.Fatalf("Apply() = %v, want E031", err)
	}
}

func TestMirrorUnknownNode(t *testing.T) {
	pf := &protocol.PatchesFrame{Patches: []protocol.Patch{
		{Op: protocol.PatchCreate, ID: 1, Tag: "root"},
		{Op: protocol.PatchAppend, ID: 2, Parent: 1},
	}}
	err := NewMirror().Apply(pf.Frame(protocol.FrameSnapshot))
	if !errors.Is(err, fberrors.Code("E032")) {
		t.Fatalf("Apply() = %v, want E032", err)
	}
}

