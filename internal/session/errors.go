package session

import "errors"

var (
	// ErrInvalidLoginResponse means the backend answered a login without a
	// token or without a user.
	ErrInvalidLoginResponse = errors.New("invalid login response")

	// ErrInitializing is returned by a login attempted before startup
	// validation finished.
	ErrInitializing = errors.New("session is still initializing")

	// ErrLoginInProgress is returned while another login is pending.
	ErrLoginInProgress = errors.New("another login is in progress")

	// ErrLogoutInProgress is returned by a login attempted during logout.
	ErrLogoutInProgress = errors.New("logout is in progress")

	// ErrSessionChanged means a logout happened while the login was in
	// flight; its result was discarded.
	ErrSessionChanged = errors.New("session changed while login was in flight")
)
