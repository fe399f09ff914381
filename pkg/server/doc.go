// Package server provides the HTTP/WebSocket server and realtime gateway for
// padsync.
//
// The server owns three surfaces, routed with chi:
//
//   - GET /    health summary (active sessions, total members)
//   - GET /ws  WebSocket upgrade into the realtime gateway
//   - GET /metrics  Prometheus metrics
//
// # Gateway
//
// Each accepted WebSocket becomes a Conn with a fresh UUID as its connection
// identifier. The Gateway runs one read loop per Conn, decodes each frame
// into a protocol envelope, and dispatches it through a typed table of intent
// handlers. Handlers call exactly one registry operation and return an error
// value for expected failures; the dispatch loop maps those onto the wire
// error catalogue and unicasts them to the originating connection only.
//
// Successful mutations fan out per the protocol contract: session-created is
// unicast to the creator, session-joined is unicast to the joiner, and
// session-updated goes to every current member of the affected session after
// a join, a text update, or a departure that leaves the session alive.
// Broadcasts are addressed by the connection IDs in the registry snapshot, so
// a mutation in one session can never leak frames into another.
//
// # Writes
//
// Conn writes are serialized by a per-connection mutex with a write deadline,
// the same discipline the read side uses for deadlines and pong handling. A
// failed write to a dying connection is logged and otherwise ignored; the
// read loop on that connection will observe the close and trigger cleanup.
package server
