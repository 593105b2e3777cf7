package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/fibers/pkg/telemetry"
)

// DefaultThreshold is the remaining slice time below which the work loop
// yields.
const DefaultThreshold = time.Millisecond

// CommitMode selects how the committer applies mutations.
type CommitMode uint8

const (
	// CommitStaged plans the whole commit first, then applies it through
	// host.ApplyAll (atomically when the adapter is a host.Batcher).
	CommitStaged CommitMode = iota

	// CommitEager applies each mutation as the commit walk reaches it.
	CommitEager
)

// String returns the string representation of the CommitMode.
func (m CommitMode) String() string {
	switch m {
	case CommitStaged:
		return "staged"
	case CommitEager:
		return "eager"
	default:
		return "unknown"
	}
}

// ParseCommitMode parses "staged" or "eager" (case-insensitive). An empty
// string selects CommitStaged.
func ParseCommitMode(s string) (CommitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "staged":
		return CommitStaged, nil
	case "eager":
		return CommitEager, nil
	default:
		return CommitStaged, fmt.Errorf("engine: unknown commit mode %q", s)
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The engine logs passes and commits at debug
// level and failed passes at error level.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus collectors the engine records into.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer sets the tracer used for render and commit spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithThreshold sets the remaining slice time below which the work loop
// yields. Negative values are treated as zero.
func WithThreshold(d time.Duration) Option {
	return func(e *Engine) {
		if d < 0 {
			d = 0
		}
		e.threshold = d
	}
}

// WithCommitMode sets the commit mode.
func WithCommitMode(mode CommitMode) Option {
	return func(e *Engine) {
		e.mode = mode
	}
}
