package engine

import (
	"time"

	"go.opentelemetry.io/otel/attribute"

	fberrors "github.com/vango-dev/fibers/internal/errors"
	"github.com/vango-dev/fibers/pkg/fiber"
	"github.com/vango-dev/fibers/pkg/host"
	"github.com/vango-dev/fibers/pkg/telemetry"
)

// CommitReport summarizes one committed render pass.
type CommitReport struct {
	Placements int // Host nodes inserted
	Updates    int // Host nodes with at least one prop mutation
	Deletions  int // Fibers removed from the tree
	Mutations  int // Host mutations applied

	Units  int // Units of work performed by the pass
	Slices int // Idle slices the pass ran in

	Duration time.Duration // Time spent in the commit phase
	Elapsed  time.Duration // Time from Render to the end of the commit
	Mode     CommitMode

	// Ops counts applied mutations by op.
	Ops map[host.Op]int
}

// committer turns the effects of a finished work-in-progress tree into host
// mutations. In eager mode each mutation is applied as soon as it is planned;
// otherwise the plan is applied in one go by flush.
type committer struct {
	adapter host.Adapter
	eager   bool

	batch   []host.Mutation
	applied int
	report  CommitReport
}

func (c *committer) emit(m host.Mutation) error {
	c.batch = append(c.batch, m)
	if !c.eager {
		return nil
	}
	if err := host.Apply(c.adapter, m); err != nil {
		return err
	}
	c.applied++
	return nil
}

func (c *committer) flush() error {
	if c.eager {
		return nil
	}
	n, err := host.ApplyAll(c.adapter, c.batch)
	c.applied = n
	return err
}

// commit plans (and, in eager mode, applies) deletions first, then a
// pre-order walk of the new tree.
func (c *committer) commit(root *fiber.Fiber, deletions []*fiber.Fiber) error {
	for _, d := range deletions {
		if err := c.commitDeletion(d); err != nil {
			return err
		}
	}

	for f := root.Child; f != nil; f = fiber.Next(f) {
		if f.Node == nil {
			continue
		}
		var err error
		switch f.Effect {
		case fiber.EffectPlacement:
			err = c.commitPlacement(f)
		case fiber.EffectUpdate:
			err = c.commitUpdate(f)
		}
		if err != nil {
			return err
		}
	}

	return c.flush()
}

func (c *committer) commitDeletion(d *fiber.Fiber) error {
	c.report.Deletions++

	n := d
	for n != nil && n.Node == nil {
		n = n.Child
	}
	if n == nil {
		// A function component that rendered nothing.
		return nil
	}
	parent := fiber.HostParent(n)
	if parent == nil {
		return nil
	}
	return c.emit(host.Mutation{Op: host.OpRemove, Parent: parent.Node, Node: n.Node})
}

func (c *committer) commitPlacement(f *fiber.Fiber) error {
	parent := fiber.HostParent(f)
	if parent == nil {
		return nil
	}
	c.report.Placements++
	if before := hostSibling(f); before != nil {
		return c.emit(host.Mutation{Op: host.OpInsertBefore, Parent: parent.Node, Node: f.Node, Before: before})
	}
	return c.emit(host.Mutation{Op: host.OpAppend, Parent: parent.Node, Node: f.Node})
}

func (c *committer) commitUpdate(f *fiber.Fiber) error {
	if f.Alternate == nil {
		return nil
	}
	muts := diffProps(f.Node, f.Alternate.Props, f.Props)
	if len(muts) == 0 {
		return nil
	}
	c.report.Updates++
	for _, m := range muts {
		if err := c.emit(m); err != nil {
			return err
		}
	}
	return nil
}

// hostSibling returns the host node that f's node must be inserted before:
// the first node after f, in the same host parent, that is already attached.
// Fibers being placed in this commit are not attached yet and are skipped.
// It returns nil when f's node belongs at the end.
func hostSibling(f *fiber.Fiber) host.Node {
	n := f
siblings:
	for {
		for n.Sibling == nil {
			if n.Parent == nil || n.Parent.Node != nil {
				return nil
			}
			n = n.Parent
		}
		n = n.Sibling

		// Descend through function components to their first host node.
		for n.Node == nil {
			if n.Effect == fiber.EffectPlacement || n.Child == nil {
				continue siblings
			}
			n = n.Child
		}
		if n.Effect != fiber.EffectPlacement {
			return n.Node
		}
	}
}

// commitRoot applies the finished pass and promotes it to the committed
// tree. It never yields.
func (e *Engine) commitRoot() {
	root := e.wipRoot
	deletions := e.deletions
	e.wipRoot = nil
	e.nextUnit = nil
	e.deletions = nil

	start := time.Now()
	_, span := telemetry.StartSpan(e.pass.ctx, e.tracer, "commit",
		attribute.String("fibers.commit_mode", e.mode.String()),
	)

	c := &committer{adapter: e.host, eager: e.mode == CommitEager}
	err := c.commit(root, deletions)
	duration := time.Since(start)

	e.metrics.Commit(err, duration)
	span.SetAttributes(
		attribute.Int("fibers.mutations", c.applied),
		attribute.Int("fibers.deletions", len(deletions)),
	)
	telemetry.EndSpan(span, err)

	if err != nil {
		if c.applied == 0 {
			for _, d := range deletions {
				d.Effect = fiber.EffectNone
			}
		} else {
			e.currentRoot = nil
		}
		e.fail(fberrors.New("E012").
			WithDetailf("%d of %d mutations applied", c.applied, len(c.batch)).
			Wrap(err))
		return
	}

	fiber.Detach(root)
	e.currentRoot = root
	e.err = nil

	report := c.report
	report.Mutations = len(c.batch)
	report.Units = e.pass.units
	report.Slices = e.pass.slices
	report.Duration = duration
	report.Elapsed = time.Since(e.pass.start)
	report.Mode = e.mode
	report.Ops = make(map[host.Op]int)
	for _, m := range c.batch {
		report.Ops[m.Op]++
	}
	e.last = report

	for op, n := range report.Ops {
		e.metrics.Mutations(op.String(), n)
	}
	e.metrics.Effects("placement", report.Placements)
	e.metrics.Effects("update", report.Updates)
	e.metrics.Effects("deletion", report.Deletions)
	e.metrics.RenderDone(report.Elapsed)
	telemetry.EndSpan(e.pass.span, nil)

	e.logger.Debug("commit",
		"placements", report.Placements,
		"updates", report.Updates,
		"deletions", report.Deletions,
		"mutations", report.Mutations,
		"units", report.Units,
		"slices", report.Slices,
		"duration", report.Duration,
	)

	for _, fn := range e.onCommit {
		fn(report)
	}
}
