package registry

import (
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
)

// Config holds configuration for a Registry.
type Config struct {
	// Rand is the random source for code generation.
	// Default: seeded from crypto-quality entropy. Tests inject a
	// deterministic source to get reproducible codes.
	Rand *rand.Rand
}

// Registry is the authoritative in-memory store of all active sessions.
//
// A single lock serializes the four mutating operations. At the expected
// scale (a handful of small rooms) lock contention is irrelevant, and the
// global critical section is what guarantees that no caller ever observes a
// partially updated session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	byConn   map[string]string // connection ID -> session code

	codes  *codeGenerator
	logger *slog.Logger

	// Lifetime counters (atomic; Stats reads them without the lock)
	totalCreated atomic.Uint64
	totalDeleted atomic.Uint64
	peak         int // protected by mu
}

// New creates a Registry. A nil config uses defaults.
func New(config *Config, logger *slog.Logger) *Registry {
	if config == nil {
		config = &Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		sessions: make(map[string]*session),
		byConn:   make(map[string]string),
		codes:    newCodeGenerator(config.Rand),
		logger:   logger.With("component", "registry"),
	}
}

// CreateSession mints a unique join code, inserts an empty session under it,
// and returns the code. Candidates that collide with a live session are
// resampled; with a 36^4 code space and small session counts the retry loop
// terminates after one draw in practice.
func (r *Registry) CreateSession() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var code string
	for {
		code = r.codes.Next()
		if _, taken := r.sessions[code]; !taken {
			break
		}
	}

	r.sessions[code] = &session{
		code:    code,
		members: make(map[string]*Member),
	}
	r.totalCreated.Add(1)
	if len(r.sessions) > r.peak {
		r.peak = len(r.sessions)
	}

	r.logger.Info("session created", "code", code)
	return code
}

// Join adds a member with the given connection ID and display name (and empty
// text) to the session named by code, and returns a snapshot of the session
// after the join.
//
// Fails with ErrSessionNotFound for an unknown code, ErrEmptyName for a blank
// display name, and ErrAlreadyInSession when the connection already belongs
// to a session. On failure the registry is left exactly as it was.
func (r *Registry) Join(code, connID, name string) (*Snapshot, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[code]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if _, joined := r.byConn[connID]; joined {
		return nil, ErrAlreadyInSession
	}

	sess.members[connID] = &Member{ID: connID, Name: name}
	r.byConn[connID] = code

	r.logger.Info("member joined", "code", code, "conn_id", connID, "name", name)
	return sess.snapshot(), nil
}

// UpdateText overwrites the note text of the member owning connID and returns
// a snapshot of that member's session. Last write wins; there is no merging.
// Fails with ErrNotInSession when the connection has no membership.
func (r *Registry) UpdateText(connID, text string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.byConn[connID]
	if !ok {
		return nil, ErrNotInSession
	}

	sess := r.sessions[code]
	sess.members[connID].Text = text

	return sess.snapshot(), nil
}

// Remove drops the member owning connID from its session. When the session
// still has members afterwards it returns the code and a snapshot of the
// remainder; when the departing member was the last one the session itself is
// deleted and the snapshot is nil. A connection that never joined anything is
// a valid no-op: Remove returns ("", nil).
func (r *Registry) Remove(connID string) (string, *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.byConn[connID]
	if !ok {
		return "", nil
	}

	sess := r.sessions[code]
	name := sess.members[connID].Name
	delete(sess.members, connID)
	delete(r.byConn, connID)

	r.logger.Info("member left", "code", code, "conn_id", connID, "name", name)

	if len(sess.members) == 0 {
		delete(r.sessions, code)
		r.totalDeleted.Add(1)
		r.logger.Info("session removed", "code", code, "reason", "empty")
		return code, nil
	}

	return code, sess.snapshot()
}

// Lookup returns a snapshot of the session containing connID, or
// ErrNotInSession. Read-only; used by the gateway for diagnostics.
func (r *Registry) Lookup(connID string) (*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	code, ok := r.byConn[connID]
	if !ok {
		return nil, ErrNotInSession
	}
	return r.sessions[code].snapshot(), nil
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// MemberCount returns the total number of members across all sessions.
func (r *Registry) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// Stats is a point-in-time summary of registry state.
type Stats struct {
	Active       int    // Currently active sessions
	Members      int    // Total members across all sessions
	TotalCreated uint64 // Sessions created since process start
	TotalDeleted uint64 // Sessions deleted since process start
	Peak         int    // Peak concurrent sessions
}

// Stats returns registry statistics.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		Active:       len(r.sessions),
		Members:      len(r.byConn),
		TotalCreated: r.totalCreated.Load(),
		TotalDeleted: r.totalDeleted.Load(),
		Peak:         r.peak,
	}
}
