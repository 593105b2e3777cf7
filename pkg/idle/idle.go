package idle

import (
	"math"
	"time"
)

// Forever is the time remaining reported by deadlines that do not expire.
const Forever = time.Duration(math.MaxInt64)

// Deadline reports the time left in the current idle slice.
type Deadline interface {
	TimeRemaining() time.Duration
}

// Scheduler is the host's idle-time facility. RequestIdle registers cb to
// run once during a future idle slice.
type Scheduler interface {
	RequestIdle(cb func(Deadline))
}

// DeadlineFunc adapts a function to the Deadline interface.
type DeadlineFunc func() time.Duration

// TimeRemaining calls f.
func (f DeadlineFunc) TimeRemaining() time.Duration { return f() }

type wallClock struct {
	end time.Time
}

func (d wallClock) TimeRemaining() time.Duration {
	if left := time.Until(d.end); left > 0 {
		return left
	}
	return 0
}

// Timed returns a deadline that expires budget from now.
func Timed(budget time.Duration) Deadline {
	return Until(time.Now().Add(budget))
}

// Until returns a deadline that expires at t.
func Until(t time.Time) Deadline {
	return wallClock{end: t}
}

type units struct {
	left int
}

func (u *units) TimeRemaining() time.Duration {
	u.left--
	if u.left <= 0 {
		return 0
	}
	return Forever
}

// Units returns a deterministic deadline that runs out on its n-th probe.
// The engine probes once after every unit of work, so a slice with Units(n)
// performs exactly n units (at least one).
func Units(n int) Deadline {
	return &units{left: n}
}

// Unbounded returns a deadline that never runs out.
func Unbounded() Deadline {
	return DeadlineFunc(func() time.Duration { return Forever })
}
