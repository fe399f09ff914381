package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/padsync-dev/padsync/pkg/protocol"
	"github.com/padsync-dev/padsync/pkg/registry"
)

// tracerName is the instrumentation scope for gateway spans.
const tracerName = "github.com/padsync-dev/padsync/pkg/server"

// intentHandler processes one inbound intent against the registry. The
// returned error is an expected outcome (unknown code, no membership, bad
// payload); the dispatch loop maps it onto the wire error catalogue.
type intentHandler func(ctx context.Context, c *Conn, env *protocol.Envelope) error

// Gateway binds live connections to registry operations and decides the
// fan-out target for every state change.
type Gateway struct {
	registry *registry.Registry
	config   *ServerConfig
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	upgrader websocket.Upgrader

	// Dispatch table: inbound intent -> handler. Built once at construction.
	handlers map[protocol.EventType]intentHandler

	// Live connections by connection ID
	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewGateway creates a Gateway over the given registry. A nil metrics
// disables instrumentation (tests use this).
func NewGateway(reg *registry.Registry, config *ServerConfig, logger *slog.Logger, metrics *Metrics) *Gateway {
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gateway{
		registry: reg,
		config:   config,
		logger:   logger.With("component", "gateway"),
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		conns: make(map[string]*Conn),
	}
	g.handlers = map[protocol.EventType]intentHandler{
		protocol.EventCreateSession: g.handleCreateSession,
		protocol.EventJoinSession:   g.handleJoinSession,
		protocol.EventUpdateText:    g.handleUpdateText,
	}
	return g
}

// HandleWebSocket upgrades the request and serves the connection until it
// closes. Blocks for the connection's lifetime.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sock, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		g.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := newConn(uuid.NewString(), sock, g.config, g.logger)
	g.register(conn)
	g.logger.Info("client connected", "conn_id", conn.ID, "remote", r.RemoteAddr)

	go g.pingLoop(conn)
	g.readLoop(conn)
}

// register adds the connection to the live set.
func (g *Gateway) register(c *Conn) {
	g.mu.Lock()
	g.conns[c.ID] = c
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.ConnectionsTotal.Inc()
		g.metrics.ConnectionsActive.Inc()
	}
}

// conn returns the live connection with the given ID, or nil.
func (g *Gateway) conn(id string) *Conn {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.conns[id]
}

// ConnCount returns the number of live connections.
func (g *Gateway) ConnCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

// readLoop consumes frames from the connection until it dies, dispatching
// each decoded intent. Cleanup runs exactly once when the loop exits.
func (g *Gateway) readLoop(c *Conn) {
	defer g.disconnect(c)

	c.sock.SetReadLimit(g.config.MaxMessageSize)
	c.sock.SetReadDeadline(time.Now().Add(g.config.ReadTimeout))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(g.config.ReadTimeout))
	})

	for {
		_, msg, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			return
		}
		c.sock.SetReadDeadline(time.Now().Add(g.config.ReadTimeout))
		c.framesIn.Add(1)

		env, err := protocol.Decode(msg)
		if err != nil {
			// Malformed or unknown frames are dropped, matching the
			// reference server which only reacts to registered events.
			c.logger.Warn("frame decode error", "error", err)
			continue
		}
		if !env.Event.Inbound() {
			c.logger.Warn("ignoring non-intent event", "event", string(env.Event))
			continue
		}

		g.dispatch(c, env)
	}
}

// pingLoop sends heartbeat pings until the connection closes.
func (g *Gateway) pingLoop(c *Conn) {
	ticker := time.NewTicker(g.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				// Closing here fails the read loop immediately, so cleanup
				// runs now instead of after the read deadline expires.
				c.close()
				return
			}
		}
	}
}

// dispatch routes one inbound intent through the handler table, tracing the
// operation and unicasting any expected failure back to the originator.
func (g *Gateway) dispatch(c *Conn, env *protocol.Envelope) {
	if g.metrics != nil {
		g.metrics.EventsReceived.WithLabelValues(string(env.Event)).Inc()
	}

	ctx, span := g.tracer.Start(context.Background(), "gateway."+string(env.Event),
		trace.WithAttributes(attribute.String("conn.id", c.ID)))
	defer span.End()

	handler := g.handlers[env.Event]
	if err := handler(ctx, c, env); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if g.metrics != nil {
			g.metrics.EventErrors.WithLabelValues(string(env.Event)).Inc()
		}

		msg := wireMessage(env.Event, err)
		g.logger.Warn("intent failed",
			"event", string(env.Event), "conn_id", c.ID, "error", err)
		c.sendError(msg)
	}
}

// handleCreateSession mints a session and tells the creator its code. The
// creator is not a member yet; the client follows up with join-session.
func (g *Gateway) handleCreateSession(_ context.Context, c *Conn, env *protocol.Envelope) error {
	name, err := env.CreateName()
	if err != nil {
		return err
	}

	code := g.registry.CreateSession()
	g.logger.Info("session created", "code", code, "by", name, "conn_id", c.ID)

	c.sendEvent(protocol.EventSessionCreated, protocol.SessionCreated{Code: code})
	return nil
}

// handleJoinSession adds the connection to a session, then tells the joiner
// its identity and broadcasts the updated roster to every member.
func (g *Gateway) handleJoinSession(_ context.Context, c *Conn, env *protocol.Envelope) error {
	req, err := env.JoinRequest()
	if err != nil {
		return err
	}

	snap, err := g.registry.Join(req.Code, c.ID, req.Name)
	if err != nil {
		return err
	}

	c.sendEvent(protocol.EventSessionJoined, protocol.SessionJoined{
		Session: toSessionState(snap),
		UserID:  c.ID,
	})
	g.broadcast(snap)
	return nil
}

// handleUpdateText overwrites the sender's note and broadcasts the roster to
// the session.
func (g *Gateway) handleUpdateText(_ context.Context, c *Conn, env *protocol.Envelope) error {
	req, err := env.UpdateRequest()
	if err != nil {
		return err
	}

	snap, err := g.registry.UpdateText(c.ID, req.Text)
	if err != nil {
		return err
	}

	g.logger.Debug("text updated", "conn_id", c.ID, "code", snap.Code, "bytes", len(req.Text))
	g.broadcast(snap)
	return nil
}

// disconnect removes the connection from the live set and from its session.
// When the session survives, the remaining members get the updated roster;
// when the departing member was the last one, the session is gone and there
// is nobody left to notify. Disconnect never surfaces an error to anyone.
func (g *Gateway) disconnect(c *Conn) {
	g.mu.Lock()
	delete(g.conns, c.ID)
	g.mu.Unlock()

	code, snap := g.registry.Remove(c.ID)
	if snap != nil {
		g.broadcast(snap)
	}
	if code != "" {
		g.logger.Info("client left session", "conn_id", c.ID, "code", code)
	}

	c.close()
	g.logger.Info("client disconnected", "conn_id", c.ID)

	if g.metrics != nil {
		g.metrics.ConnectionsActive.Dec()
	}
}

// broadcast sends session-updated with the snapshot's roster to every member
// of that session, and nobody else. The frame is encoded once and shared.
// Sends run outside the registry lock, so rosters from two concurrent
// mutations can reach a recipient in either order; each frame is a complete
// snapshot, and the next event replaces it wholesale.
func (g *Gateway) broadcast(snap *registry.Snapshot) {
	frame, err := protocol.Encode(protocol.EventSessionUpdated, toSessionState(snap))
	if err != nil {
		g.logger.Error("broadcast encode error", "code", snap.Code, "error", err)
		return
	}

	for id := range snap.Users {
		c := g.conn(id)
		if c == nil {
			// Member's connection is already gone; its read loop cleanup
			// will drop it from the registry shortly.
			continue
		}
		if err := c.write(frame); err != nil {
			c.logger.Warn("broadcast send failed", "code", snap.Code, "error", err)
		}
	}

	if g.metrics != nil {
		g.metrics.Broadcasts.Inc()
	}
}

// CloseAll closes every live connection. Used during shutdown.
func (g *Gateway) CloseAll() {
	g.mu.Lock()
	conns := lo.Values(g.conns)
	g.conns = make(map[string]*Conn)
	g.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// toSessionState converts a registry snapshot to its wire shape.
func toSessionState(snap *registry.Snapshot) protocol.SessionState {
	return protocol.SessionState{
		Code: snap.Code,
		Users: lo.MapValues(snap.Users, func(m registry.Member, _ string) protocol.User {
			return protocol.User{ID: m.ID, Name: m.Name, Text: m.Text}
		}),
	}
}

// wireMessage maps an intent failure onto the closed wire error catalogue.
// Specific registry outcomes keep their dedicated messages; everything else
// collapses into the per-operation generic failure so internals never leak.
func wireMessage(event protocol.EventType, err error) string {
	switch {
	case errors.Is(err, registry.ErrSessionNotFound):
		return protocol.MsgSessionNotFound
	case errors.Is(err, registry.ErrNotInSession):
		return protocol.MsgNotInSession
	}

	switch event {
	case protocol.EventCreateSession:
		return protocol.MsgCreateFailed
	case protocol.EventJoinSession:
		return protocol.MsgJoinFailed
	default:
		return protocol.MsgUpdateFailed
	}
}
