// Package session holds the session lifecycle controller: the one state
// machine the rest of goose observes to know whether a user is signed in.
//
// States move Initializing -> {Authenticated, Anonymous} at startup and
// between Authenticated and Anonymous afterwards.
//
// A persisted token is never trusted until the backend confirms it, so
// Start validates it with GetCurrentUser and discards it on any rejection.
// Logout is the opposite: the backend call is best-effort and local
// teardown always happens.
package session
