package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/fibers/pkg/host/memory"
	"github.com/vango-dev/fibers/pkg/render"
	"github.com/vango-dev/fibers/pkg/telemetry"
)

// Server serves the HTML view, the JSON tree and the WebSocket stream of a
// memory host container.
type Server struct {
	config   *Config
	host     *memory.Host
	root     *memory.Node
	hub      *Hub
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
	exec     func(func()) bool
	upgrader websocket.Upgrader
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the server configuration. Zero fields take defaults.
func WithConfig(config *Config) Option {
	return func(s *Server) {
		s.config = config
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records viewer metrics on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithGatherer sets the registry served at /metrics.
// Default: prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithEngineExec routes snapshot requests through exec. See WithExec.
func WithEngineExec(exec func(fn func()) bool) Option {
	return func(s *Server) {
		s.exec = exec
	}
}

// New creates a server for the subtree under root and attaches its hub to
// h.
func New(h *memory.Host, root *memory.Node, opts ...Option) *Server {
	s := &Server{
		host:     h,
		root:     root,
		logger:   slog.Default().With("component", "server"),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.config = s.config.withDefaults()

	s.hub = NewHub(h, root,
		WithHubLogger(s.logger.With("component", "hub")),
		WithHubMetrics(s.metrics),
		WithExec(s.exec),
	)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}
	s.router = s.routes()
	return s
}

// Hub returns the server's hub. Report render errors to Hub().Error.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Config returns the effective configuration.
func (s *Server) Config() *Config {
	return s.config
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Get("/tree", s.handleTree)
	r.Get("/ws", s.handleWebSocket)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	return r
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<div id="root">{{.Body}}</div>
<script>
(function () {
  var root = document.getElementById("root");
  var proto = location.protocol === "https:" ? "wss:" : "ws:";
  var ws = new WebSocket(proto + "//" + location.host + "/ws");
  ws.binaryType = "arraybuffer";
  ws.onmessage = function () {
    fetch("/tree").then(function (r) { return r.text(); }).then(function (html) {
      root.innerHTML = html;
    });
  };
})();
</script>
</body>
</html>
`))

type pageData struct {
	Title string
	Body  template.HTML
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		Title: s.config.Title,
		Body:  template.HTML(render.HTML(s.host.Snapshot(s.root))),
	})
	if err != nil {
		s.logger.Error("page render failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	tree := s.host.Snapshot(s.root)

	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(tree); err != nil {
			s.logger.Error("tree encode failed", "error", err)
		}
		return
	}

	config := render.Config{Pretty: r.URL.Query().Get("pretty") != ""}
	var buf bytes.Buffer
	if err := render.NewRenderer(config).Children(&buf, tree); err != nil {
		s.logger.Error("tree render failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn, s.config, s.logger.With("remote", r.RemoteAddr), s.metrics)
	go c.writeLoop()

	ctx, cancel := context.WithTimeout(r.Context(), s.config.WriteTimeout)
	err = s.hub.Join(ctx, c)
	cancel()
	if err != nil {
		s.logger.Error("viewer join failed", "error", err)
		c.Close()
		return
	}

	c.readLoop()
	s.hub.Leave(c)
}

// ListenAndServe serves on the configured address until ctx is done, then
// disconnects viewers and shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
