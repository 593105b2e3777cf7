package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/fibers/pkg/engine"
	"github.com/vango-dev/fibers/pkg/host/memory"
	"github.com/vango-dev/fibers/pkg/idle"
	"github.com/vango-dev/fibers/pkg/server"
	"github.com/vango-dev/fibers/pkg/telemetry"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live clock demo",
		Long: `Serve a clock that re-renders on every tick. The engine runs on an
idle loop, and every commit is streamed to WebSocket viewers as one
patches frame.

Routes:
  /         HTML view that follows the stream
  /tree     current tree (?format=json for JSON)
  /ws       binary frame stream (see "fibers watch")
  /metrics  Prometheus metrics
  /healthz  liveness probe

Examples:
  fibers serve
  fibers serve --addr :9090 --interval 250ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr, interval)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "Time between clock ticks")

	return cmd
}

func runServe(cmd *cobra.Command, addr string, interval time.Duration) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if interval <= 0 {
		interval = time.Second
	}
	logger := cfg.Logger(cmd.ErrOrStderr())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		metrics = telemetry.NewMetrics(
			telemetry.WithRegistry(reg),
			telemetry.WithNamespace(cfg.Metrics.Namespace),
		)
	}

	h := memory.New()
	root := h.Container("root")
	loop := idle.NewLoop(cfg.Scheduler.Budget, cfg.Scheduler.Gap,
		idle.WithLogger(logger.With("component", "idle")),
		idle.WithPostQueue(cfg.Scheduler.PostQueue),
	)
	eng := engine.New(h, loop,
		engine.WithLogger(logger.With("component", "engine")),
		engine.WithMetrics(metrics),
		engine.WithThreshold(cfg.Engine.Threshold),
		engine.WithCommitMode(cfg.CommitMode()),
	)
	srv := server.New(h, root,
		server.WithConfig(&server.Config{
			Addr:         cfg.Server.Addr,
			Title:        cfg.Server.Title,
			WriteTimeout: cfg.Server.WriteTimeout,
			PingInterval: cfg.Server.PingInterval,
			SendQueue:    cfg.Server.SendQueue,
		}),
		server.WithLogger(logger.With("component", "server")),
		server.WithMetrics(metrics),
		server.WithGatherer(reg),
		server.WithEngineExec(loop.Post),
	)
	eng.OnError(srv.Hub().Error)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := loop.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	g.Go(func() error {
		return tickClock(ctx, loop, eng, root, interval, logger)
	})

	success(cmd.ErrOrStderr(), "Serving on %s", cfg.Server.Addr)
	return g.Wait()
}

// tickClock re-renders the clock on the loop goroutine every interval until
// ctx is done.
func tickClock(ctx context.Context, loop *idle.Loop, eng *engine.Engine, root *memory.Node, interval time.Duration, logger *slog.Logger) error {
	tick := 0
	post := func() {
		tick++
		el := clockApp(tick, time.Now())
		loop.Post(func() {
			if err := eng.Render(el, root); err != nil {
				logger.Error("render rejected", "error", err)
			}
		})
	}

	post()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			post()
		}
	}
}
