package protocol

// Wire error messages. The catalogue is closed: clients display these
// verbatim, so the strings are part of the protocol.
const (
	// MsgSessionNotFound is sent when a join names an unknown code.
	MsgSessionNotFound = "Session not found"

	// MsgNotInSession is sent when an update-text arrives from a connection
	// with no membership.
	MsgNotInSession = "Not in any session"

	// MsgCreateFailed is the generic failure for create-session.
	MsgCreateFailed = "Failed to create session"

	// MsgJoinFailed is the generic failure for join-session.
	MsgJoinFailed = "Failed to join session"

	// MsgUpdateFailed is the generic failure for update-text.
	MsgUpdateFailed = "Failed to update text"
)

// EncodeError marshals an error event carrying msg. Error frames never fail
// to encode (the payload is a plain string), so the error return of Encode is
// swallowed here.
func EncodeError(msg string) []byte {
	frame, _ := Encode(EventError, msg)
	return frame
}
