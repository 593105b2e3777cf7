package server

import (
	"time"
)

// Config holds the server configuration.
type Config struct {
	// Addr is the listen address.
	// Default: ":8080".
	Addr string

	// Title is the page title of the HTML view.
	// Default: "fibers".
	Title string

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// ReadTimeout is the maximum time to wait for a pong from a viewer.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// PingInterval is the time between heartbeat pings. Must be shorter
	// than ReadTimeout.
	// Default: 30 seconds.
	PingInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Viewers only send control frames.
	// Default: 4KB.
	MaxMessageSize int64

	// SendQueue is the number of frames buffered per viewer. A viewer that
	// falls this far behind is disconnected.
	// Default: 256.
	SendQueue int

	// ShutdownTimeout bounds graceful shutdown in ListenAndServe.
	// Default: 5 seconds.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		Title:           "fibers",
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4 * 1024,
		SendQueue:       256,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// withDefaults fills zero fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := c.Clone()
	if out.Addr == "" {
		out.Addr = d.Addr
	}
	if out.Title == "" {
		out.Title = d.Title
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.PingInterval <= 0 || out.PingInterval >= out.ReadTimeout {
		out.PingInterval = out.ReadTimeout / 2
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.SendQueue <= 0 {
		out.SendQueue = d.SendQueue
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	return out
}
