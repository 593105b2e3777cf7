package idle

// Manual is a Scheduler whose slices run only when Step or Drain is called.
// It is not safe for concurrent use.
type Manual struct {
	queue []func(Deadline)
	steps int
}

// NewManual returns an empty Manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// RequestIdle queues cb for a later Step.
func (m *Manual) RequestIdle(cb func(Deadline)) {
	m.queue = append(m.queue, cb)
}

// Pending returns the number of callbacks waiting for a slice.
func (m *Manual) Pending() int {
	return len(m.queue)
}

// Steps returns the number of slices run so far.
func (m *Manual) Steps() int {
	return m.steps
}

// Step runs the oldest pending callback with deadline d. It reports false
// when nothing was pending.
func (m *Manual) Step(d Deadline) bool {
	if len(m.queue) == 0 {
		return false
	}
	cb := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	m.steps++
	cb(d)
	return true
}

// Drain steps until no callback is pending, calling next for a fresh
// deadline before each slice. It returns the number of slices run.
func (m *Manual) Drain(next func() Deadline) int {
	n := 0
	for m.Pending() > 0 {
		m.Step(next())
		n++
	}
	return n
}
