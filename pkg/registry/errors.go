package registry

import "errors"

// Sentinel errors for expected registry outcomes. These are ordinary results
// of user input, not internal failures; callers match them with errors.Is.
var (
	// ErrSessionNotFound is returned when a code does not name an active session.
	ErrSessionNotFound = errors.New("registry: session not found")

	// ErrNotInSession is returned when a connection is not a member of any session.
	ErrNotInSession = errors.New("registry: connection not in any session")

	// ErrAlreadyInSession is returned when a connection that already belongs to
	// a session tries to join another one. A connection must disconnect (or be
	// removed) before it can join elsewhere.
	ErrAlreadyInSession = errors.New("registry: connection already in a session")

	// ErrEmptyName is returned when a join is attempted with an empty display name.
	ErrEmptyName = errors.New("registry: display name must not be empty")
)
