// Package telemetry holds the Prometheus collectors and OpenTelemetry
// helpers used by the reconciliation engine and the viewer server.
//
// Metrics collected (default namespace "fibers"):
//   - fibers_units_of_work_total: fibers processed by the work loop
//   - fibers_idle_slices_total: idle slices consumed
//   - fibers_commits_total: commits by result (ok, error)
//   - fibers_mutations_total: host mutations applied, by op
//   - fibers_effects_total: committed effects, by kind
//   - fibers_commit_duration_seconds: time spent in the commit phase
//   - fibers_render_duration_seconds: wall time from Render to commit
//   - fibers_render_errors_total: failed render passes, by error code
//   - fibers_renders_queued_total: renders queued behind an in-flight pass
//   - fibers_viewers: connected WebSocket viewers
//   - fibers_frames_sent_total: frames queued to viewers, by frame type
//   - fibers_websocket_errors_total: viewer connection errors, by type
//
// A nil *Metrics is valid and records nothing, so the engine can run
// without a registry.
//
// Tracing uses the global OpenTelemetry tracer provider. Configure it in
// main() before rendering:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
package telemetry
