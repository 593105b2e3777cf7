package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the engine metrics.
type Config struct {
	// Namespace is the metrics namespace (default: "fibers").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the engine metrics.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "fibers",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors of one engine.
type Metrics struct {
	units          prometheus.Counter
	slices         prometheus.Counter
	commits        *prometheus.CounterVec
	mutations      *prometheus.CounterVec
	effects        *prometheus.CounterVec
	commitDuration prometheus.Histogram
	renderDuration prometheus.Histogram
	renderErrors   *prometheus.CounterVec
	queued         prometheus.Counter
	viewers        prometheus.Gauge
	frames         *prometheus.CounterVec
	wsErrors       *prometheus.CounterVec
}

// NewMetrics registers the engine collectors and returns them. Registering
// twice against the same registry panics, as with promauto.
func NewMetrics(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		units: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "units_of_work_total",
			Help:        "Total number of fibers processed by the work loop",
			ConstLabels: config.ConstLabels,
		}),

		slices: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "idle_slices_total",
			Help:        "Total number of idle slices consumed",
			ConstLabels: config.ConstLabels,
		}),

		commits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commits_total",
			Help:        "Total number of commits by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mutations_total",
			Help:        "Total number of host mutations applied by op",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		effects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effects_total",
			Help:        "Total number of committed effects by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"effect"}),

		commitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commit_duration_seconds",
			Help:        "Commit phase duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Wall time from render request to commit in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		renderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_errors_total",
			Help:        "Total number of failed render passes by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		queued: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_queued_total",
			Help:        "Total number of renders queued behind an in-flight pass",
			ConstLabels: config.ConstLabels,
		}),

		viewers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "viewers",
			Help:        "Number of connected WebSocket viewers",
			ConstLabels: config.ConstLabels,
		}),

		frames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_sent_total",
			Help:        "Total number of frames queued to viewers by frame type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "Total WebSocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// UnitOfWork counts one processed fiber.
func (m *Metrics) UnitOfWork() {
	if m == nil {
		return
	}
	m.units.Inc()
}

// Slice counts one consumed idle slice.
func (m *Metrics) Slice() {
	if m == nil {
		return
	}
	m.slices.Inc()
}

// Commit records a finished commit phase.
func (m *Metrics) Commit(err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commits.WithLabelValues(result).Inc()
	m.commitDuration.Observe(d.Seconds())
}

// Mutations adds n applied host mutations of the given op.
func (m *Metrics) Mutations(op string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.mutations.WithLabelValues(op).Add(float64(n))
}

// Effects adds n committed effects of the given kind.
func (m *Metrics) Effects(effect string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.effects.WithLabelValues(effect).Add(float64(n))
}

// RenderDone records the wall time of a completed render pass.
func (m *Metrics) RenderDone(d time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(d.Seconds())
}

// RenderError counts a failed render pass. code is the error code, or
// "unknown" when empty.
func (m *Metrics) RenderError(code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.renderErrors.WithLabelValues(code).Inc()
}

// Queued counts a render queued behind an in-flight pass.
func (m *Metrics) Queued() {
	if m == nil {
		return
	}
	m.queued.Inc()
}

// ViewerJoined counts a connected viewer.
func (m *Metrics) ViewerJoined() {
	if m == nil {
		return
	}
	m.viewers.Inc()
}

// ViewerLeft counts a disconnected viewer.
func (m *Metrics) ViewerLeft() {
	if m == nil {
		return
	}
	m.viewers.Dec()
}

// FrameSent counts one frame of the given type queued to a viewer.
func (m *Metrics) FrameSent(frameType string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(frameType).Inc()
}

// WebSocketError counts a viewer connection error ("write", "read",
// "overflow").
func (m *Metrics) WebSocketError(errorType string) {
	if m == nil {
		return
	}
	m.wsErrors.WithLabelValues(errorType).Inc()
}
