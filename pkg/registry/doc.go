// Package registry implements the in-memory session registry for padsync.
//
// The registry is the single authority for session codes and membership. It
// maps short join codes to sessions, each session holding the set of connected
// members and their current note text. Sessions exist only in memory: the
// registry starts empty and a process restart loses everything.
//
// # Operations
//
// Four operations mutate the registry, and nothing else does:
//
//   - CreateSession: mint a unique 4-character code and insert an empty session
//   - Join: add a member to the session named by a code
//   - UpdateText: overwrite a member's note text (last write wins)
//   - Remove: drop a member, deleting the session when it empties
//
// Every operation is atomic under a registry-wide lock and returns either a
// consistent deep-copied Snapshot or an error, never a partial view. Expected
// failures (unknown code, connection without a session) are plain error
// values; the registry never panics on user input.
//
// # Lookup index
//
// Membership is keyed by connection identifier. A secondary index from
// connection ID to session code is maintained alongside the primary map so
// UpdateText and Remove resolve in O(1) instead of scanning all sessions. The
// index is updated in the same critical section as the membership mutation.
package registry
