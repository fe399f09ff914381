package registry

// Member is one participant's identity and note within a session.
type Member struct {
	// ID is the opaque connection identifier assigned by the gateway
	// transport. Unique per live connection.
	ID string

	// Name is the display name supplied at join time. Never empty; not
	// checked for uniqueness within a session.
	Name string

	// Text is the member's note. Starts empty and is overwritten wholesale
	// by UpdateText; only the owning connection mutates it.
	Text string
}

// session is the registry-internal state for one collaboration room.
// Mutated only while holding the registry lock.
type session struct {
	code    string
	members map[string]*Member // keyed by connection ID
}

// Snapshot is a consistent, deep-copied view of a session, safe to hand to
// callers and marshal for broadcast after the registry lock is released.
type Snapshot struct {
	// Code is the session's join code.
	Code string

	// Users maps connection ID to member state at the time of the snapshot.
	Users map[string]Member
}

// snapshot copies the session under the registry lock.
func (s *session) snapshot() *Snapshot {
	users := make(map[string]Member, len(s.members))
	for id, m := range s.members {
		users[id] = *m
	}
	return &Snapshot{Code: s.code, Users: users}
}
