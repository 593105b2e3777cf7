// Package fiber implements the fiber tree and the child reconciler.
//
// A Fiber is both a node of the work-in-progress tree and a unit of work.
// Trees use a child/sibling encoding with parent back-links, which lets the
// traversal order (child, else the nearest ancestor's next sibling) be
// computed one step at a time without a call stack, so a render pass can
// stop after any fiber and resume later.
//
// Each fiber of a new tree points at the fiber that held the same position
// in the last committed tree through Alternate. Alternate is a read-only
// back-reference: the new tree never owns the old one, and Detach drops the
// links once the new tree has been committed.
package fiber
