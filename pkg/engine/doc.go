// Package engine drives incremental reconciliation of an element tree into
// a host tree.
//
// A render runs in two phases. The render phase walks a work-in-progress
// fiber tree one unit of work (one fiber) at a time, reconciling each
// fiber's children against the last committed tree and creating detached
// host nodes for new host fibers. It runs inside idle slices handed out by
// an idle.Scheduler and yields whenever the slice's deadline drops below the
// configured threshold, so it may be spread over any number of slices.
//
// Once the last unit of work is done the commit phase applies every
// collected effect to the host in one uninterruptible pass and promotes the
// work-in-progress tree to be the baseline of the next render. Observers of
// the host tree therefore only ever see complete versions of the declared
// tree.
//
// Basic usage:
//
//	h := memory.New()
//	root := h.Container("root")
//	sched := idle.NewManual()
//	eng := engine.New(h, sched)
//
//	if err := eng.Render(element.Div(element.Props{"id": "foo"}, "hi"), root); err != nil {
//	    return err
//	}
//	sched.Drain(func() idle.Deadline { return idle.Units(8) })
//
// An Engine is not safe for concurrent use. Render and the work loop must
// run on the scheduler's goroutine; idle.Loop.Post marshals calls onto it.
package engine
