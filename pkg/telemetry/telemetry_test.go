package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/attribute"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("test"))

	m.UnitOfWork()
	m.UnitOfWork()
	m.Slice()
	m.Commit(nil, time.Millisecond)
	m.Commit(errors.New("boom"), time.Millisecond)
	m.Mutations("append", 3)
	m.Mutations("append", 0)
	m.Effects("placement", 2)
	m.RenderDone(time.Millisecond)
	m.RenderError("E010")
	m.RenderError("")
	m.Queued()

	if got := counterValue(t, m.units); got != 2 {
		t.Errorf("units = %v, want 2", got)
	}
	if got := counterValue(t, m.slices); got != 1 {
		t.Errorf("slices = %v, want 1", got)
	}
	if got := counterValue(t, m.commits.WithLabelValues("ok")); got != 1 {
		t.Errorf("commits{ok} = %v, want 1", got)
	}
	if got := counterValue(t, m.commits.WithLabelValues("error")); got != 1 {
		t.Errorf("commits{error} = %v, want 1", got)
	}
	if got := histogramCount(t, m.commitDuration); got != 2 {
		t.Errorf("commit duration samples = %d, want 2", got)
	}
	if got := counterValue(t, m.mutations.WithLabelValues("append")); got != 3 {
		t.Errorf("mutations{append} = %v, want 3", got)
	}
	if got := counterValue(t, m.effects.WithLabelValues("placement")); got != 2 {
		t.Errorf("effects{placement} = %v, want 2", got)
	}
	if got := histogramCount(t, m.renderDuration); got != 1 {
		t.Errorf("render duration samples = %d, want 1", got)
	}
	if got := counterValue(t, m.renderErrors.WithLabelValues("E010")); got != 1 {
		t.Errorf("render_errors{E010} = %v, want 1", got)
	}
	if got := counterValue(t, m.renderErrors.WithLabelValues("unknown")); got != 1 {
		t.Errorf("render_errors{unknown} = %v, want 1", got)
	}
	if got := counterValue(t, m.queued); got != 1 {
		t.Errorf("queued = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "test_units_of_work_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected test_units_of_work_total to be registered")
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.UnitOfWork()
	m.Slice()
	m.Commit(nil, 0)
	m.Mutations("append", 1)
	m.Effects("update", 1)
	m.RenderDone(0)
	m.RenderError("E011")
	m.Queued()
	m.ViewerJoined()
	m.ViewerLeft()
	m.FrameSent("patches")
	m.WebSocketError("write")
}

func TestViewerMetrics(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	m.ViewerJoined()
	m.ViewerJoined()
	m.ViewerLeft()
	m.FrameSent("snapshot")
	m.FrameSent("patches")
	m.FrameSent("patches")
	m.WebSocketError("overflow")

	if got := gaugeValue(t, m.viewers); got != 1 {
		t.Errorf("viewers = %v, want 1", got)
	}
	if got := counterValue(t, m.frames.WithLabelValues("patches")); got != 2 {
		t.Errorf("frames_sent{patches} = %v, want 2", got)
	}
	if got := counterValue(t, m.wsErrors.WithLabelValues("overflow")); got != 1 {
		t.Errorf("websocket_errors{overflow} = %v, want 1", got)
	}
}

func TestSpans(t *testing.T) {
	tracer := Tracer("")
	ctx, span := StartSpan(context.Background(), tracer, "render", attribute.Int("fibers.units", 3))
	if ctx == nil || span == nil {
		t.Fatal("StartSpan returned nil")
	}
	_, child := StartSpan(ctx, tracer, "commit")
	EndSpan(child, errors.New("commit failed"))
	EndSpan(span, nil)
	EndSpan(nil, nil)
}
