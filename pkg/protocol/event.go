package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType identifies the type of a wire event.
type EventType string

// Event type constants. The names are the wire values.
const (
	// Client -> server intents
	EventCreateSession EventType = "create-session"
	EventJoinSession   EventType = "join-session"
	EventUpdateText    EventType = "update-text"

	// Server -> client notifications
	EventSessionCreated EventType = "session-created"
	EventSessionJoined  EventType = "session-joined"
	EventSessionUpdated EventType = "session-updated"
	EventError          EventType = "error"
)

// Valid reports whether et is a known event type in either direction.
func (et EventType) Valid() bool {
	switch et {
	case EventCreateSession, EventJoinSession, EventUpdateText,
		EventSessionCreated, EventSessionJoined, EventSessionUpdated, EventError:
		return true
	}
	return false
}

// Inbound reports whether et is a client -> server intent.
func (et EventType) Inbound() bool {
	switch et {
	case EventCreateSession, EventJoinSession, EventUpdateText:
		return true
	}
	return false
}

// Decode errors.
var (
	// ErrInvalidEnvelope is returned when a frame is not a valid envelope.
	ErrInvalidEnvelope = errors.New("protocol: invalid envelope")

	// ErrUnknownEvent is returned when the envelope names no known event.
	ErrUnknownEvent = errors.New("protocol: unknown event")

	// ErrInvalidPayload is returned when an event's data does not match its
	// declared shape.
	ErrInvalidPayload = errors.New("protocol: invalid payload")
)

// Envelope is the outer frame of every message: the event name plus its
// still-encoded payload. Payload accessors decode Data on demand.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Decode parses a wire frame into an Envelope. The event must be a known
// type; payload shape is checked later by the typed accessors.
func Decode(frame []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if !env.Event.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	return &env, nil
}

// Encode wraps payload in an envelope for event and marshals the frame.
func Encode(event EventType, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// JoinSessionRequest is the payload of a join-session intent.
type JoinSessionRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// UpdateTextRequest is the payload of an update-text intent.
type UpdateTextRequest struct {
	Text string `json:"text"`
}

// User is one participant as seen on the wire.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// SessionState is the full state of a session: its code and the roster of
// users keyed by connection ID.
type SessionState struct {
	Code  string          `json:"code"`
	Users map[string]User `json:"users"`
}

// SessionCreated is the payload of a session-created notification, unicast
// to the creator.
type SessionCreated struct {
	Code string `json:"code"`
}

// SessionJoined is the payload of a session-joined notification, unicast to
// the joiner. UserID tells the client its own connection identity.
type SessionJoined struct {
	Session SessionState `json:"session"`
	UserID  string       `json:"userId"`
}

// CreateName decodes the payload of a create-session intent: the creator's
// display name as a bare JSON string.
func (e *Envelope) CreateName() (string, error) {
	var name string
	if err := json.Unmarshal(e.Data, &name); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidPayload, e.Event, err)
	}
	return name, nil
}

// JoinRequest decodes the payload of a join-session intent.
func (e *Envelope) JoinRequest() (JoinSessionRequest, error) {
	var req JoinSessionRequest
	if err := json.Unmarshal(e.Data, &req); err != nil {
		return JoinSessionRequest{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, e.Event, err)
	}
	return req, nil
}

// UpdateRequest decodes the payload of an update-text intent.
func (e *Envelope) UpdateRequest() (UpdateTextRequest, error) {
	var req UpdateTextRequest
	if err := json.Unmarshal(e.Data, &req); err != nil {
		return UpdateTextRequest{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, e.Event, err)
	}
	return req, nil
}
