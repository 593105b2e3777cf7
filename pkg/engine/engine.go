package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	fberrors "github.com/vango-dev/fibers/internal/errors"
	"github.com/vango-dev/fibers/pkg/element"
	"github.com/vango-dev/fibers/pkg/fiber"
	"github.com/vango-dev/fibers/pkg/host"
	"github.com/vango-dev/fibers/pkg/idle"
	"github.com/vango-dev/fibers/pkg/telemetry"
)

// Engine reconciles element trees into one host. Each Engine owns its own
// committed tree, work-in-progress tree and deletions.
type Engine struct {
	host      host.Adapter
	sched     idle.Scheduler
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
	threshold time.Duration
	mode      CommitMode

	currentRoot *fiber.Fiber
	wipRoot     *fiber.Fiber
	nextUnit    *fiber.Fiber
	deletions   []*fiber.Fiber

	// scheduled is set while a work loop callback is registered.
	scheduled bool

	// queued is the newest Render issued while a pass was in flight.
	queued *request

	pass passState
	last CommitReport
	err  error

	onCommit []func(CommitReport)
	onError  []func(error)
}

type request struct {
	el        *element.Element
	container host.Node
}

// passState tracks the render pass in flight.
type passState struct {
	start  time.Time
	units  int
	slices int
	ctx    context.Context
	span   trace.Span
}

// New returns an engine that mutates adapter and runs on sched.
func New(adapter host.Adapter, sched idle.Scheduler, opts ...Option) *Engine {
	e := &Engine{
		host:      adapter,
		sched:     sched,
		logger:    slog.Default().With("component", "engine"),
		tracer:    telemetry.Tracer(""),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render requests that el be rendered into container. It only validates and
// schedules; the work happens in later idle slices.
//
// A Render issued while a pass is in flight does not interrupt it. The
// request is queued and starts once the in-flight pass has committed or
// failed; a newer request replaces an older queued one.
func (e *Engine) Render(el *element.Element, container host.Node) error {
	if el == nil {
		return fberrors.New("E013").WithCaller(1)
	}
	if container == nil {
		return fberrors.New("E014").WithCaller(1)
	}

	if e.wipRoot != nil {
		e.queued = &request{el: el, container: container}
		e.metrics.Queued()
		e.logger.Debug("render queued behind in-flight pass", "type", el.Type.String())
		return nil
	}

	e.start(el, container)
	return nil
}

// start sets up a fresh work-in-progress root and schedules the work loop.
func (e *Engine) start(el *element.Element, container host.Node) {
	alternate := e.currentRoot
	if alternate != nil && alternate.Node != container {
		alternate = nil
	}

	e.wipRoot = fiber.NewRoot(container, el, alternate)
	e.nextUnit = e.wipRoot
	e.deletions = nil

	ctx, span := telemetry.StartSpan(context.Background(), e.tracer, "render",
		attribute.String("fibers.root", el.Type.String()),
		attribute.Bool("fibers.incremental", alternate != nil),
	)
	e.pass = passState{start: time.Now(), ctx: ctx, span: span}

	e.logger.Debug("render started",
		"type", el.Type.String(),
		"incremental", alternate != nil,
	)
	e.schedule()
}

func (e *Engine) schedule() {
	if e.scheduled {
		return
	}
	e.scheduled = true
	e.sched.RequestIdle(e.workLoop)
}

// workLoop runs units of work until none remain or the deadline runs low,
// commits a finished pass and re-registers while work remains. At least one
// unit runs per slice.
func (e *Engine) workLoop(d idle.Deadline) {
	e.scheduled = false
	if e.wipRoot != nil {
		e.pass.slices++
		e.metrics.Slice()
	}

	for e.nextUnit != nil {
		next, err := e.performUnitOfWork(e.nextUnit)
		if err != nil {
			e.abort(err)
			break
		}
		e.nextUnit = next

		if left := d.TimeRemaining(); left <= 0 || left < e.threshold {
			break
		}
	}

	if e.nextUnit == nil && e.wipRoot != nil {
		e.commitRoot()
	}

	if e.wipRoot == nil && e.queued != nil {
		q := e.queued
		e.queued = nil
		e.start(q.el, q.container)
	}

	if e.nextUnit != nil {
		e.schedule()
	}
}

// performUnitOfWork reconciles the children of f and returns the next unit
// of work in depth-first order.
func (e *Engine) performUnitOfWork(f *fiber.Fiber) (*fiber.Fiber, error) {
	e.pass.units++
	e.metrics.UnitOfWork()

	switch f.Type.Kind {
	case element.KindFunc:
		out, err := renderComponent(f)
		if err != nil {
			return nil, err
		}
		var kids []*element.Element
		if out != nil {
			kids = []*element.Element{out}
		}
		e.deletions = fiber.Reconcile(f, kids, e.deletions)

	default:
		if f.Node == nil {
			n, err := e.host.CreateNode(f.Type, f.Props)
			if err != nil {
				return nil, fberrors.New("E010").WithDetailf("<%s>", f.Type).Wrap(err)
			}
			f.Node = n
		}
		e.deletions = fiber.Reconcile(f, f.Props.Children(), e.deletions)
	}

	return fiber.Next(f), nil
}

func renderComponent(f *fiber.Fiber) (el *element.Element, err error) {
	if f.Type.Component == nil {
		return nil, fberrors.New("E003").WithDetailf("function fiber %q has no component", f.Type.Tag)
	}
	defer func() {
		if r := recover(); r != nil {
			fe := fberrors.New("E011").WithDetailf("%s: %v", f.Type, r)
			if rerr, ok := r.(error); ok {
				fe.Wrap(rerr)
			}
			el, err = nil, fe
		}
	}()
	return f.Type.Component.Render(f.Props), nil
}

// abort discards the pass in flight. The committed tree is untouched apart
// from deletion tags, which are cleared.
func (e *Engine) abort(err error) {
	for _, d := range e.deletions {
		d.Effect = fiber.EffectNone
	}
	e.wipRoot = nil
	e.nextUnit = nil
	e.deletions = nil
	e.fail(err)
}

func (e *Engine) fail(err error) {
	e.err = err

	code := ""
	var fe *fberrors.FibersError
	if errors.As(err, &fe) {
		code = fe.Code
	}
	e.metrics.RenderError(code)
	telemetry.EndSpan(e.pass.span, err)

	e.logger.Error("render pass failed",
		"code", code,
		"error", err,
		"units", e.pass.units,
		"slices", e.pass.slices,
	)
	for _, fn := range e.onError {
		fn(err)
	}
}

// OnCommit registers fn to run after every successful commit.
func (e *Engine) OnCommit(fn func(CommitReport)) {
	e.onCommit = append(e.onCommit, fn)
}

// OnError registers fn to run when a render pass fails.
func (e *Engine) OnError(fn func(error)) {
	e.onError = append(e.onError, fn)
}

// Err returns the error of the last finished pass, or nil if it committed.
func (e *Engine) Err() error {
	return e.err
}

// Pending reports whether a pass is in flight or queued.
func (e *Engine) Pending() bool {
	return e.wipRoot != nil || e.queued != nil
}

// Current returns the root of the last committed tree, or nil.
func (e *Engine) Current() *fiber.Fiber {
	return e.currentRoot
}

// LastReport returns the report of the last successful commit.
func (e *Engine) LastReport() CommitReport {
	return e.last
}
