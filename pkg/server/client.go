package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/fibers/pkg/telemetry"
)

// client is one WebSocket viewer.
type client struct {
	conn    *websocket.Conn
	config  *Config
	logger  *slog.Logger
	metrics *telemetry.Metrics

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, config *Config, logger *slog.Logger, metrics *telemetry.Metrics) *client {
	return &client{
		conn:    conn,
		config:  config,
		logger:  logger,
		metrics: metrics,
		send:    make(chan []byte, config.SendQueue),
		done:    make(chan struct{}),
	}
}

// Send implements Sink.
func (c *client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close implements Sink.
func (c *client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readLoop consumes viewer messages so control frames (pong, close) are
// processed. It blocks until the connection fails or the client closes.
func (c *client) readLoop() {
	defer c.Close()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
				c.metrics.WebSocketError("read")
			}
			return
		}
		// Viewers have nothing to say; anything other than control frames
		// is ignored.
	}
}

// writeLoop writes queued frames and heartbeat pings until the client
// closes, then sends a close message and closes the connection.
func (c *client) writeLoop() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				c.logger.Error("write error", "error", err)
				c.metrics.WebSocketError("write")
				c.Close()
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout)); err != nil {
				c.logger.Debug("ping error", "error", err)
				c.Close()
				return
			}

		case <-c.done:
			return
		}
	}
}
