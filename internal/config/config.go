package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vango-dev/fibers/internal/errors"
	"github.com/vango-dev/fibers/pkg/engine"
)

// Defaults.
const (
	DefaultBudget       = 5 * time.Millisecond
	DefaultGap          = time.Millisecond
	DefaultPostQueue    = 256
	DefaultThreshold    = engine.DefaultThreshold
	DefaultCommitMode   = "staged"
	DefaultAddr         = ":8080"
	DefaultTitle        = "fibers"
	DefaultWriteTimeout = 10 * time.Second
	DefaultPingInterval = 30 * time.Second
	DefaultSendQueue    = 256
	DefaultNamespace    = "fibers"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// Config is the top-level configuration.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
	Publish   PublishConfig   `mapstructure:"publish"`

	// configPath is the file the config was read from, if any.
	configPath string
}

// SchedulerConfig configures the idle loop.
type SchedulerConfig struct {
	// Budget is the idle time granted per slice.
	Budget time.Duration `mapstructure:"budget"`

	// Gap is the pause between slices.
	Gap time.Duration `mapstructure:"gap"`

	// PostQueue is the capacity of the loop's post queue.
	PostQueue int `mapstructure:"post_queue"`
}

// EngineConfig configures the reconciliation engine.
type EngineConfig struct {
	// Threshold is the remaining slice time below which the work loop
	// yields.
	Threshold time.Duration `mapstructure:"threshold"`

	// CommitMode is "staged" or "eager".
	CommitMode string `mapstructure:"commit_mode"`
}

// ServerConfig configures the viewer server.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	Title        string        `mapstructure:"title"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
	SendQueue    int           `mapstructure:"send_queue"`
}

// MetricsConfig configures Prometheus collection.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`

	// Format is text or json.
	Format string `mapstructure:"format"`
}

// PublishConfig configures the S3 client used by render --publish.
// Credentials come from the standard AWS_* environment variables.
type PublishConfig struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Budget:    DefaultBudget,
			Gap:       DefaultGap,
			PostQueue: DefaultPostQueue,
		},
		Engine: EngineConfig{
			Threshold:  DefaultThreshold,
			CommitMode: DefaultCommitMode,
		},
		Server: ServerConfig{
			Addr:         DefaultAddr,
			Title:        DefaultTitle,
			WriteTimeout: DefaultWriteTimeout,
			PingInterval: DefaultPingInterval,
			SendQueue:    DefaultSendQueue,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Path returns the file the configuration was read from, or "" when only
// defaults and the environment were used.
func (c *Config) Path() string {
	return c.configPath
}

// Validate checks value ranges. Errors are E021 coded.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New("E021").WithDetail(fmt.Sprintf(format, args...))
	}

	if c.Scheduler.Budget <= 0 {
		return invalid("scheduler.budget must be positive, got %s", c.Scheduler.Budget)
	}
	if c.Scheduler.Gap < 0 {
		return invalid("scheduler.gap must not be negative, got %s", c.Scheduler.Gap)
	}
	if c.Scheduler.PostQueue <= 0 {
		return invalid("scheduler.post_queue must be positive, got %d", c.Scheduler.PostQueue)
	}
	if c.Engine.Threshold < 0 {
		return invalid("engine.threshold must not be negative, got %s", c.Engine.Threshold)
	}
	if c.Engine.Threshold >= c.Scheduler.Budget {
		return invalid("engine.threshold (%s) must be below scheduler.budget (%s)", c.Engine.Threshold, c.Scheduler.Budget)
	}
	if _, err := engine.ParseCommitMode(c.Engine.CommitMode); err != nil {
		return errors.New("E021").Wrap(err).
			WithSuggestion(`Use "staged" or "eager"`)
	}
	if c.Server.Addr == "" {
		return invalid("server.addr must be set")
	}
	if c.Server.SendQueue <= 0 {
		return invalid("server.send_queue must be positive, got %d", c.Server.SendQueue)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return errors.New("E021").Wrap(err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return invalid("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// CommitMode returns the parsed engine commit mode. Call Validate first.
func (c *Config) CommitMode() engine.CommitMode {
	mode, _ := engine.ParseCommitMode(c.Engine.CommitMode)
	return mode
}

// ParseLevel parses a slog level name.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// Logger builds the slog logger described by c.Log writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
