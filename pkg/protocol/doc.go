// Package protocol defines the wire protocol between padsync clients and the
// gateway.
//
// Messages travel as JSON text frames over a WebSocket, one event per frame,
// wrapped in a small envelope:
//
//	{"event": "join-session", "data": {"code": "AB12", "name": "Alice"}}
//
// The event catalogue is fixed and mirrors the socket.io naming the original
// clients speak:
//
//	client -> server: create-session, join-session, update-text
//	server -> client: session-created, session-joined, session-updated, error
//
// The error event carries a bare human-readable string; the set of messages
// is closed (see the Msg* constants) so clients can match on them. Nothing in
// this package touches session state: it is a pure codec shared by the
// gateway and by test clients.
package protocol
