// Package idle defines the idle-time facility the reconciliation engine runs
// on, plus a few drivers for it.
//
// A Scheduler hands out idle slices: callbacks registered with RequestIdle
// run later, each with a Deadline that reports how much of the slice is
// left. Callbacks run once; a callback that has more work re-registers
// itself. Nothing in this package spawns background goroutines on its own.
//
// Drivers:
//
//   - Manual runs slices only when told to. Tests use it to interleave
//     slices with assertions.
//   - Loop runs slices on the goroutine that calls Run, with a fixed budget
//     per slice and an optional gap between slices.
//
// Deadlines:
//
//   - Timed and Until measure wall-clock time.
//   - Units grants a fixed number of probes and is deterministic.
//   - Unbounded never runs out.
package idle
