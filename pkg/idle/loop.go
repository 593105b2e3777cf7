package idle

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultPostQueue = 256

// Loop is a Scheduler that runs idle slices on the goroutine calling Run.
// Each slice gets a Timed deadline of the configured budget; consecutive
// slices are separated by the configured gap, during which posted functions
// still run.
//
// RequestIdle and Post are safe to call from any goroutine. Callbacks and
// posted functions always run on the Run goroutine, one at a time.
type Loop struct {
	budget time.Duration
	gap    time.Duration
	logger *slog.Logger

	mu   sync.Mutex
	idle []func(Deadline)

	posts chan func()
	wake  chan struct{}
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLogger sets the logger used for dropped posts.
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithPostQueue sets the capacity of the post queue.
func WithPostQueue(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.posts = make(chan func(), n)
		}
	}
}

// NewLoop returns a Loop granting budget per slice with gap between slices.
func NewLoop(budget, gap time.Duration, opts ...LoopOption) *Loop {
	l := &Loop{
		budget: budget,
		gap:    gap,
		logger: slog.Default().With("component", "idle"),
		posts:  make(chan func(), defaultPostQueue),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RequestIdle registers cb for the next idle slice.
func (l *Loop) RequestIdle(cb func(Deadline)) {
	l.mu.Lock()
	l.idle = append(l.idle, cb)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Post queues fn to run on the loop goroutine ahead of the next slice.
// It reports false if the queue is full and fn was dropped.
func (l *Loop) Post(fn func()) bool {
	select {
	case l.posts <- fn:
		return true
	default:
		l.logger.Warn("post queue full, dropping function")
		return false
	}
}

func (l *Loop) next() func(Deadline) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.idle) == 0 {
		return nil
	}
	cb := l.idle[0]
	l.idle[0] = nil
	l.idle = l.idle[1:]
	return cb
}

// Run drives the loop until ctx is done and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	for {
		// Posted functions run before the next slice.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.posts:
			fn()
			continue
		default:
		}

		cb := l.next()
		if cb == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case fn := <-l.posts:
				fn()
			case <-l.wake:
			}
			continue
		}

		cb(Timed(l.budget))

		if l.gap > 0 {
			if err := l.pause(ctx); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) pause(ctx context.Context) error {
	t := time.NewTimer(l.gap)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.posts:
			fn()
		case <-t.C:
			return nil
		}
	}
}
