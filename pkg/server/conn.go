package server

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/padsync-dev/padsync/pkg/protocol"
)

// Conn is one live client connection: the WebSocket plus the opaque
// identifier the registry knows it by.
type Conn struct {
	// ID is the connection identifier, assigned at upgrade time and stable
	// for the connection's lifetime.
	ID string

	sock   *websocket.Conn
	mu     sync.Mutex // Protects sock writes
	closed atomic.Bool
	done   chan struct{} // Closed when the connection shuts down

	config *ServerConfig
	logger *slog.Logger

	// Counters for the close log line
	framesIn  atomic.Uint64
	framesOut atomic.Uint64
}

func newConn(id string, sock *websocket.Conn, config *ServerConfig, logger *slog.Logger) *Conn {
	return &Conn{
		ID:     id,
		sock:   sock,
		done:   make(chan struct{}),
		config: config,
		logger: logger.With("component", "conn", "conn_id", id),
	}
}

// write sends a single text frame, serialized by the connection mutex and
// bounded by the write deadline.
func (c *Conn) write(frame []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sock.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
		return &ConnError{ConnID: c.ID, Op: "write", Err: err}
	}
	c.framesOut.Add(1)
	return nil
}

// sendEvent encodes and sends one protocol event. Delivery is best effort:
// a send to a dying connection is logged and dropped, and the connection's
// own read loop handles the cleanup.
func (c *Conn) sendEvent(event protocol.EventType, payload any) {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		c.logger.Error("encode error", "event", string(event), "error", err)
		return
	}
	if err := c.write(frame); err != nil {
		c.logger.Warn("send failed", "event", string(event), "error", err)
	}
}

// sendError sends a wire error message to this connection only.
func (c *Conn) sendError(msg string) {
	if err := c.write(protocol.EncodeError(msg)); err != nil {
		c.logger.Warn("send failed", "event", string(protocol.EventError), "error", err)
	}
}

// ping sends a WebSocket ping control frame.
func (c *Conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sock.WriteControl(websocket.PingMessage, nil,
		time.Now().Add(c.config.WriteTimeout))
}

// close shuts the socket down, sending a close frame when the peer is still
// there to read it. Safe to call more than once.
func (c *Conn) close() {
	if c.closed.Swap(true) {
		return
	}
	close(c.done)

	c.sock.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.sock.Close()

	c.logger.Info("connection closed",
		"frames_in", c.framesIn.Load(),
		"frames_out", c.framesOut.Load())
}
